package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ncobase/askflow/net/resp"
	"github.com/ncobase/askflow/service"
)

// Ask handles POST /v1/asks.
func (h *Handler) Ask(c *gin.Context) {
	var req service.AskRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Ask.Ask(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Success(c.Writer, out)
}

// AskResult handles GET /v1/asks/:query_id/result.
func (h *Handler) AskResult(c *gin.Context) {
	out, err := h.svc.Ask.Result(c.Request.Context(), c.Param("query_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Success(c.Writer, out)
}

// StopAsk handles PATCH /v1/asks/:query_id.
func (h *Handler) StopAsk(c *gin.Context) {
	var req service.StopRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Ask.Stop(c.Request.Context(), c.Param("query_id"), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.Success(c.Writer, out)
}
