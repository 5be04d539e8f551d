package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
)

type ctxKey string

// CtxKeyTraceID is the request context key holding the request trace id.
const CtxKeyTraceID ctxKey = "trace_id"

// TraceHeader carries the trace id back to the client.
const TraceHeader = "X-Trace-Id"

// TraceID tags every request with a fresh ksuid.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ksuid.New().String()
		ctx := context.WithValue(c.Request.Context(), CtxKeyTraceID, id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, id)

		c.Next()
	}
}

// TraceIDFrom returns the trace id stored by TraceID, or "".
func TraceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(CtxKeyTraceID).(string)
	return id
}

// Logger logs one line per inbound request.
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t0 := time.Now()

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		log.Log(c.Request.Context(), level, "inbound request",
			slog.String("trace_id", TraceIDFrom(c.Request.Context())),
			slog.Group("http",
				slog.Group("request",
					"duration_ms", time.Since(t0).Milliseconds(),
					"method", c.Request.Method,
					"route", c.FullPath(),
					"path", c.Request.URL.Path,
					"client_ip", c.ClientIP(),
				),
				slog.Group("response",
					"status", c.Writer.Status(),
					"size", c.Writer.Size(),
				),
			),
		)
	}
}

// Recovery turns a handler panic into a 500 response.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(c.Request.Context(), "recovered from panic",
					"panic", r,
					"trace_id", TraceIDFrom(c.Request.Context()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()

		c.Next()
	}
}
