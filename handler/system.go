package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/askflow/net/resp"
)

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	body := map[string]any{"status": "healthy"}
	if h.health != nil {
		body = h.health.Health(c.Request.Context())
	}
	status := http.StatusOK
	if body["status"] != "healthy" {
		status = http.StatusServiceUnavailable
	}
	resp.WithStatusCode(c.Writer, status, body)
}

// Stats handles GET /v1/stats.
func (h *Handler) Stats(c *gin.Context) {
	resp.Success(c.Writer, h.svc.Jobs.Stats())
}
