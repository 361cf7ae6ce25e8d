package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/skyline/config"
	"github.com/Domenick1991/skyline/internal/bootstrap"
	"github.com/Domenick1991/skyline/internal/dispatch"
	"github.com/Domenick1991/skyline/internal/email"
	"github.com/Domenick1991/skyline/internal/kafka"
	"github.com/Domenick1991/skyline/internal/metrics"
	"github.com/Domenick1991/skyline/internal/repository"
	"github.com/Domenick1991/skyline/internal/service/ticketing"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()

	dispatcher := dispatch.New(producer, logger,
		dispatch.WithMaxRetries(cfg.Dispatch.MaxRetries),
		dispatch.WithBackoff(cfg.Dispatch.Backoff()),
		dispatch.WithRecorder(m),
	)
	defer dispatcher.Close()

	codec := kafka.NewCodec(map[string]kafka.Kind{
		cfg.Kafka.TicketBookingRoutingKey:            kafka.KindTicketBooking,
		cfg.Kafka.EmailBookingConfirmationRoutingKey: kafka.KindEmailBookingConfirmation,
		cfg.Kafka.EmailCancellationRoutingKey:        kafka.KindEmailBookingCancellation,
		cfg.Kafka.EmailBoardingPassRoutingKey:        kafka.KindEmailBoardingPass,
		cfg.Kafka.EmailTicketRoutingKey:              kafka.KindEmailTicket,
	}, logger)

	ticketConsumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.TicketGroupID,
		Topic:           cfg.Kafka.TicketExchange,
		DeadLetterTopic: cfg.Kafka.DeadLetterExchange,
		Prefetch:        cfg.Kafka.PrefetchCount,
	}, codec, producer, m, logger)
	defer ticketConsumer.Close()

	emailConsumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.EmailGroupID,
		Topic:           cfg.Kafka.EmailExchange,
		DeadLetterTopic: cfg.Kafka.DeadLetterExchange,
		Prefetch:        cfg.Kafka.PrefetchCount,
	}, codec, producer, m, logger)
	defer emailConsumer.Close()

	tickets := ticketing.NewService(
		repository.NewBookingRepository(pool),
		dispatcher,
		cfg.Kafka.EmailExchange,
		cfg.Kafka.EmailTicketRoutingKey,
		logger,
		ticketing.WithRecorder(m),
	)
	emails := email.NewConsumer(email.NewLogSender(logger), logger)

	gin.SetMode(gin.ReleaseMode)
	router := bootstrap.NewRouter(bootstrap.RouterDeps{Gatherer: reg}, logger)
	servers := bootstrap.NewServers(cfg, router, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ticketConsumer.Run(ctx, tickets.Handle) })
	g.Go(func() error { return emailConsumer.Run(ctx, emails.Handle) })
	g.Go(func() error { return servers.Run(ctx, cfg.GRPC.Address) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
