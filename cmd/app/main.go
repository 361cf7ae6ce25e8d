package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/skyline/api"
	"github.com/Domenick1991/skyline/config"
	"github.com/Domenick1991/skyline/internal/bootstrap"
	"github.com/Domenick1991/skyline/internal/cache"
	"github.com/Domenick1991/skyline/internal/dispatch"
	"github.com/Domenick1991/skyline/internal/kafka"
	"github.com/Domenick1991/skyline/internal/metrics"
	"github.com/Domenick1991/skyline/internal/repository"
	"github.com/Domenick1991/skyline/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		bootstrap.NewLogger(os.Stderr, "error").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := bootstrap.NewLogger(os.Stdout, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, seat locks and idempotency keys will fail", "error", err)
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		logger.Warn("kafka unavailable, events will be retried and dropped", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dispatcher := dispatch.New(producer, logger,
		dispatch.WithMaxRetries(cfg.Dispatch.MaxRetries),
		dispatch.WithBackoff(cfg.Dispatch.Backoff()),
		dispatch.WithRecorder(m),
	)
	// runs before producer.Close
	defer dispatcher.Close()

	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		repository.NewSeatInventory(pool, redisCache, cfg.Inventory.SeatLockTTL(), logger),
		dispatcher,
		booking.RoutesFromConfig(cfg.Kafka),
		logger,
	)

	gin.SetMode(gin.ReleaseMode)
	router := bootstrap.NewRouter(bootstrap.RouterDeps{
		Bookings:    api.NewBookingHandler(bookingService, logger),
		Idempotency: redisCache,
		Gatherer:    reg,
		SwaggerDir:  cfg.HTTP.SwaggerDir,
	}, logger)

	if err := bootstrap.NewServers(cfg, router, logger).Run(ctx, cfg.GRPC.Address); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
