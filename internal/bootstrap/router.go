package bootstrap

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/skyline/api"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerSpec = "/swagger/bookings.swagger.json"

type RouterDeps struct {
	Bookings    *api.BookingHandler
	Idempotency api.IdempotencyStore
	Gatherer    prometheus.Gatherer
	SwaggerDir  string
}

// NewRouter builds the gin engine. Booking routes are mounted only when a
// handler is given, so the worker can reuse it for metrics and docs.
func NewRouter(deps RouterDeps, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if deps.Bookings != nil {
		var create []gin.HandlerFunc
		if deps.Idempotency != nil {
			create = append(create, api.Idempotency(deps.Idempotency, logger))
		}
		deps.Bookings.Register(r.Group("/booking"), create...)
	}

	if deps.SwaggerDir != "" {
		r.Static("/swagger", deps.SwaggerDir)
		r.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerSpec))))
	}
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
