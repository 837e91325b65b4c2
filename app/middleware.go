package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/askflow/ctxutil"
	"github.com/ncobase/askflow/logging/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader carries the request trace id in and out.
const TraceHeader = "X-Trace-ID"

// traceMiddleware binds a trace id and a server span to the request context.
func traceMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("github.com/ncobase/askflow/app")
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		traceID := c.GetHeader(TraceHeader)
		if traceID != "" {
			ctx = ctxutil.SetTraceID(ctx, traceID)
		} else {
			ctx, traceID = ctxutil.EnsureTraceID(ctx)
		}
		c.Header(TraceHeader, traceID)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String(ctxutil.TraceIDKey, traceID)),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}

func loggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info(c.Request.Context(), "HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
