package bootstrap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewRouter_MetricsAndHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "skyline_test_total", Help: "test"}))

	r := NewRouter(RouterDeps{Gatherer: reg}, discardLogger())

	assert.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "skyline_test_total")
	assert.Equal(t, http.StatusNotFound, get(r, "/booking/x").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/docs/index.html").Code)
}

func TestNewRouter_Swagger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bookings.swagger.json"), []byte(`{"swagger":"2.0"}`), 0o644))

	r := NewRouter(RouterDeps{SwaggerDir: dir}, discardLogger())

	w := get(r, swaggerSpec)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"swagger":"2.0"}`, w.Body.String())
	assert.Equal(t, http.StatusOK, get(r, "/docs/index.html").Code)
}
