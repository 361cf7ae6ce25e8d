package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// memoryStore mirrors the Redis semantics: a key is either in progress (empty
// value) or holds the stored response.
type memoryStore struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (s *memoryStore) BeginIdempotent(_ context.Context, key string, _ time.Duration) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, "", s.err
	}
	if v, ok := s.keys[key]; ok {
		return false, v, nil
	}
	s.keys[key] = ""
	return true, "", nil
}

func (s *memoryStore) CompleteIdempotent(_ context.Context, key, response string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = response
	return nil
}

func (s *memoryStore) AbortIdempotent(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func newIdempotentRouter(store IdempotencyStore, status int, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/booking", Idempotency(store, discardLogger()), func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	})
	return r
}

func post(r http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/booking", nil)
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls int
	r := newIdempotentRouter(newMemoryStore(), http.StatusCreated, &calls)

	first := post(r, "k-1")
	second := post(r, "k-1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(idempotencyHitHdr))
}

func TestIdempotency_WithoutKey(t *testing.T) {
	var calls int
	r := newIdempotentRouter(newMemoryStore(), http.StatusCreated, &calls)

	post(r, "")
	post(r, "")

	assert.Equal(t, 2, calls)
}

func TestIdempotency_InProgress(t *testing.T) {
	var calls int
	store := newMemoryStore()
	store.keys["POST:/booking:k-1"] = ""
	r := newIdempotentRouter(store, http.StatusCreated, &calls)

	w := post(r, "k-1")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, calls)
}

func TestIdempotency_ServerErrorIsNotStored(t *testing.T) {
	var calls int
	r := newIdempotentRouter(newMemoryStore(), http.StatusInternalServerError, &calls)

	post(r, "k-1")
	post(r, "k-1")

	assert.Equal(t, 2, calls)
}

func TestIdempotency_StoreUnavailable(t *testing.T) {
	var calls int
	store := newMemoryStore()
	store.err = errors.New("redis: connection refused")
	r := newIdempotentRouter(store, http.StatusCreated, &calls)

	w := post(r, "k-1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, calls)
}
