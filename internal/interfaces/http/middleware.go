package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/office-orders/internal/application/port"
	"github.com/garyjia/office-orders/internal/domain/apperr"
	"github.com/garyjia/office-orders/internal/domain/event"
	"github.com/garyjia/office-orders/pkg/metrics"
)

// HeaderCorrelationID links a request to the events it publishes
const HeaderCorrelationID = "X-Correlation-Id"

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"correlation_id", c.Writer.Header().Get(HeaderCorrelationID),
		)
	}
}

// metricsMiddleware records request counts and latency per route
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// correlationMiddleware carries the caller's correlation id, or a fresh one, into the request context
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderCorrelationID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderCorrelationID, id)
		c.Request = c.Request.WithContext(event.WithCorrelationID(c.Request.Context(), id))
		c.Next()
	}
}

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(str string) (int, error) {
	r.body.WriteString(str)
	return r.ResponseWriter.WriteString(str)
}

// idempotencyMiddleware guards mutating requests keyed by user and request id.
// A duplicate of an in-flight request gets 409; a duplicate of a finished one
// replays the stored response. Server failures release the key.
func (s *Server) idempotencyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := s.deps.Idempotency
		reqID := strings.TrimSpace(c.GetHeader(port.HeaderRequestID))
		if store == nil || reqID == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		key := sessionFrom(c).UserID + ":" + c.FullPath() + ":" + reqID
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		acquired, err := store.Acquire(ctx, key)
		if err != nil {
			s.logger.Error("Idempotency store unavailable", "key", key, "error", err)
			s.fail(c, apperr.Network(err))
			return
		}
		if !acquired {
			status, body, done, err := store.Lookup(ctx, key)
			if err != nil {
				s.fail(c, apperr.Network(err))
				return
			}
			if done {
				metrics.IdempotentReplaysTotal.WithLabelValues("replayed").Inc()
				c.Data(status, "application/json; charset=utf-8", body)
				c.Abort()
				return
			}
			metrics.IdempotentReplaysTotal.WithLabelValues("in_flight").Inc()
			s.fail(c, apperr.ErrActionInFlight)
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rec
		c.Next()

		final, cancelFinal := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
		defer cancelFinal()

		if status := rec.Status(); status >= http.StatusInternalServerError {
			err = store.Release(final, key)
		} else {
			err = store.Complete(final, key, status, rec.body.Bytes())
		}
		if err != nil {
			s.logger.Error("Failed to settle idempotency key", "key", key, "error", err)
		}
	}
}
