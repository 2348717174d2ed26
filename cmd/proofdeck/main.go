package main

import (
	"context"
	"expvar"
	"log"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/proofdeck/proofdeck/internal/infrastructure/configs"
	"github.com/proofdeck/proofdeck/internal/infrastructure/events"
	"github.com/proofdeck/proofdeck/internal/infrastructure/logging"
	"github.com/proofdeck/proofdeck/internal/infrastructure/messaging"
	"github.com/proofdeck/proofdeck/internal/infrastructure/metrics"
	"github.com/proofdeck/proofdeck/internal/infrastructure/ratelimiter"
	"github.com/proofdeck/proofdeck/internal/infrastructure/tracing"
	"github.com/proofdeck/proofdeck/internal/infrastructure/ws"
	"github.com/proofdeck/proofdeck/internal/persistence/db"
	"github.com/proofdeck/proofdeck/internal/persistence/repository"
	"github.com/proofdeck/proofdeck/internal/presentation/api"
	"github.com/proofdeck/proofdeck/internal/presentation/handler/health"
	"github.com/proofdeck/proofdeck/internal/presentation/handler/projects"
)

const (
	serviceName = "proofdeck-api"
)

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := logging.NewLogger(logging.NewDefaultConfig())
	logger.Init()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	mongoClient, err := db.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal(err)
	}
	defer db.DisconnectMongo(context.Background(), mongoClient)

	database := db.GetDatabase(mongoClient, cfg.Mongo)

	annotationRepository := repository.NewAnnotationRepository(database)
	elementRepository := repository.NewElementRepository(database)
	reviewRepository := repository.NewReviewRepository(database)
	activityRepository := repository.NewActivityLogRepository(database)

	indexCtx, indexCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := annotationRepository.EnsureIndexes(indexCtx); err != nil {
		logger.Warnf("failed to ensure annotation indexes: %v", err)
	}
	if err := activityRepository.EnsureIndexes(indexCtx); err != nil {
		logger.Warnf("failed to ensure activity log indexes: %v", err)
	}
	indexCancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	brokerMetrics := metrics.NewBroker(registry)
	hub := ws.NewHub(logger, brokerMetrics, cfg.Broker.SendBufferSize, cfg.Broker.AnnounceBufferSize)

	var activityPublisher *events.ActivityPublisher
	if cfg.AMQP.Enabled {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.AMQP.URI)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		logger.Info(logging.RabbitMQ, logging.Startup, "rabbitmq connection established", nil)

		activityPublisher = events.NewActivityPublisher(rabbitmq)

		activityConsumer := events.NewActivityConsumer(rabbitmq, activityRepository, logger)
		go activityConsumer.Listen()
	}

	projectsHandler := projects.NewHandler(
		annotationRepository,
		elementRepository,
		reviewRepository,
		activityRepository,
		hub,
		activityPublisher,
		logger,
	)
	healthHandler := health.NewHandler()

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})
	app := api.NewApplication(*cfg, *projectsHandler, *healthHandler, logger, rl, registry)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatalf("server exited with error: %v", err)
	}
}
