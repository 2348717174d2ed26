package api

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/proofdeck/proofdeck/internal/infrastructure/configs"
	"github.com/proofdeck/proofdeck/internal/infrastructure/logging"
	"github.com/proofdeck/proofdeck/internal/infrastructure/ratelimiter"
	healthHandler "github.com/proofdeck/proofdeck/internal/presentation/handler/health"
	projectsHandler "github.com/proofdeck/proofdeck/internal/presentation/handler/projects"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config          configs.Config
	projectsHandler projectsHandler.Handler
	healthHandler   healthHandler.Handler
	logger          logging.Logger
	ratelimiter     ratelimiter.Limiter
	registry        *prometheus.Registry
}

func NewApplication(
	config configs.Config,
	projectsHandler projectsHandler.Handler,
	healthHandler healthHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	registry *prometheus.Registry,
) *Application {
	return &Application{
		config:          config,
		projectsHandler: projectsHandler,
		healthHandler:   healthHandler,
		logger:          logger,
		ratelimiter:     ratelimiter,
		registry:        registry,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(app.loggerMiddleware)
	r.Use(app.rateLimiterMiddleware)
	r.Use(app.enableCors)

	r.Route("/api", func(r chi.Router) {
		r.Route("/projects/{projectId}", func(r chi.Router) {
			r.Get("/ws", app.projectsHandler.ConnectHandler)
			r.Get("/activity", app.projectsHandler.GetActivityHandler)

			r.Post("/annotations", app.projectsHandler.CreateAnnotationHandler)
			r.Patch("/annotations/{annotationId}/status", app.projectsHandler.SetAnnotationStatusHandler)
			r.Post("/annotations/{annotationId}/replies", app.projectsHandler.CreateReplyHandler)

			r.Patch("/elements/{elementId}/status", app.projectsHandler.SetElementStatusHandler)
			r.Patch("/reviews/{reviewId}/status", app.projectsHandler.SetReviewStatusHandler)
		})

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	r.Handle("/debug/vars", expvar.Handler())

	return otelhttp.NewHandler(r, "proofdeck-api")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		healthHandler.SetUnhealthy()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
