package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ncobase/askflow/net/resp"
	"github.com/ncobase/askflow/service"
)

// Prepare handles POST /v1/semantics-preparations.
func (h *Handler) Prepare(c *gin.Context) {
	var req service.PrepareRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Preparation.Prepare(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Success(c.Writer, out)
}

// PreparationStatus handles GET /v1/semantics-preparations/:id/status.
func (h *Handler) PreparationStatus(c *gin.Context) {
	out, err := h.svc.Preparation.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Success(c.Writer, out)
}
