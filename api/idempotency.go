package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	idempotencyHeader  = "Idempotency-Key"
	idempotencyHitHdr  = "X-Idempotency-Hit"
	idempotencyLockTTL = 30 * time.Second
	idempotencyTTL     = 24 * time.Hour
)

// IdempotencyStore remembers responses by client supplied key.
type IdempotencyStore interface {
	BeginIdempotent(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	CompleteIdempotent(ctx context.Context, key, response string, ttl time.Duration) error
	AbortIdempotent(ctx context.Context, key string) error
}

type storedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a request that carried the same
// Idempotency-Key. Requests without the header pass through, and so do all
// requests while the store is unavailable.
func Idempotency(store IdempotencyStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(idempotencyHeader)
		if header == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := c.Request.Method + ":" + c.FullPath() + ":" + header
		acquired, stored, err := store.BeginIdempotent(ctx, key, idempotencyLockTTL)
		if err != nil {
			logger.Warn("idempotency store unavailable", "error", err)
			c.Next()
			return
		}

		if !acquired {
			var prev storedResponse
			if stored == "" || json.Unmarshal([]byte(stored), &prev) != nil {
				c.AbortWithStatusJSON(http.StatusConflict, errorResponse{
					Code:    codeRequestInProgress,
					Message: "a request with this idempotency key is still being processed",
				})
				return
			}
			c.Header(idempotencyHitHdr, "true")
			c.Data(prev.Status, "application/json; charset=utf-8", []byte(prev.Body))
			c.Abort()
			return
		}

		w := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		detached := context.WithoutCancel(ctx)
		if w.Status() >= http.StatusInternalServerError {
			if err := store.AbortIdempotent(detached, key); err != nil {
				logger.Warn("failed to clear idempotency key", "error", err)
			}
			return
		}

		resp, _ := json.Marshal(storedResponse{Status: w.Status(), Body: w.body.String()})
		if err := store.CompleteIdempotent(detached, key, string(resp), idempotencyTTL); err != nil {
			logger.Warn("failed to store idempotent response", "error", err)
		}
	}
}
