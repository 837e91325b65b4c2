// Package handler provides the HTTP endpoints for preparations and asks.
package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/ncobase/askflow/net/resp"
	"github.com/ncobase/askflow/service"
)

// HealthChecker reports backend health.
type HealthChecker interface {
	Health(ctx context.Context) map[string]any
}

// Handler serves the v1 API.
type Handler struct {
	svc    *service.Service
	health HealthChecker
	logger *logger.Logger
}

// New creates a new handler. health may be nil.
func New(svc *service.Service, health HealthChecker, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.StdLogger()
	}
	return &Handler{svc: svc, health: health, logger: log}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	v1.POST("/semantics-preparations", h.Prepare)
	v1.GET("/semantics-preparations/:id/status", h.PreparationStatus)
	v1.POST("/asks", h.Ask)
	v1.GET("/asks/:query_id/result", h.AskResult)
	v1.PATCH("/asks/:query_id", h.StopAsk)
	v1.GET("/stats", h.Stats)
}

// bind decodes the JSON body into req. An empty body decodes as {} so that
// field validation produces the error detail.
func bind(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		resp.Fail(c.Writer, resp.BadRequest("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// fail maps service errors to responses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, job.ErrInvalidRequest):
		resp.Fail(c.Writer, resp.BadRequest(err.Error()))
	case errors.Is(err, job.ErrNotFound):
		resp.Fail(c.Writer, resp.NotFound(err.Error()))
	case errors.Is(err, job.ErrConflict):
		resp.Fail(c.Writer, resp.Conflict(err.Error()))
	case errors.Is(err, job.ErrUnavailable):
		resp.Fail(c.Writer, resp.ServiceUnavailable(err.Error()))
	default:
		h.logger.Error(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
		resp.Fail(c.Writer, resp.InternalServer("internal server error"))
	}
}
