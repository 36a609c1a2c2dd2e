package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	promclient "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"banvicdash/internal/config"
	"banvicdash/internal/dataprocessing"
	apierrors "banvicdash/internal/errors"
	"banvicdash/internal/files"
	"banvicdash/internal/infrastructure"
	customMiddleware "banvicdash/internal/middleware"
	"banvicdash/internal/services"
	handlers "banvicdash/internal/transport/http"
	ws "banvicdash/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.BusinessMetrics
	ErrorHandler     *apierrors.ErrorHandler
	WebSocketHub     *ws.Hub
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
}

// Option customises NewApplication.
type Option func(*options)

type options struct {
	registry *promclient.Registry
}

// WithRegistry registers the Prometheus collector on reg instead of the
// default registry.
func WithRegistry(reg *promclient.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.Registry = o.registry
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	if providers.Meter != nil {
		if app.Metrics, err = infrastructure.CreateBusinessMetrics(providers.Meter); err != nil {
			return nil, fmt.Errorf("failed to create business metrics: %w", err)
		}
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	pipeline, err := dataprocessing.NewPipeline(a.Config, a.Logger)
	if err != nil {
		return err
	}

	a.WebSocketHub = ws.NewHub(a.Logger)
	a.DashboardService = services.NewDashboardService(pipeline, a.WebSocketHub, a.Metrics, a.Logger)
	a.HealthService = services.NewHealthService(files.NewDiscovery(a.Config.Data), a.DashboardService, a.WebSocketHub, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// Only middleware that leaves the ResponseWriter alone may run before /ws.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws", wsHandler)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))

		validator := customMiddleware.NewQueryValidator(a.Logger)
		r.Method(http.MethodGet, "/", handlers.NewPageHandler(a.DashboardService, validator, a.ErrorHandler, a.Logger))

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.ErrorHandler, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/health/sources", healthHandler.Sources)
			r.Get("/health/files", healthHandler.DataFiles)
			r.Get("/version", healthHandler.Version)

			r.Post("/log", handlers.NewClientLogHandler(a.ErrorHandler, a.Logger).Handle)

			dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, validator, a.ErrorHandler, a.Logger)
			r.Mount("/dashboard", dashboardHandler.Routes())
		})
	})

	a.Router = r
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// LoadDataset builds the initial dataset. A schema error is fatal; any other
// failure is logged and retried on the next request.
func (a *Application) LoadDataset(ctx context.Context) error {
	ds, err := a.DashboardService.Dataset(ctx)
	if err != nil {
		if apierrors.IsType(err, apierrors.ErrTypeSchema) {
			return err
		}
		a.Logger.WarnContext(ctx, "initial dataset load failed",
			slog.String("data_dir", a.Config.Data.Dir),
			slog.String("error", err.Error()))
		return nil
	}

	a.Logger.InfoContext(ctx, "dataset loaded",
		slog.String("fingerprint", ds.Fingerprint),
		slog.Any("rows", ds.Summary().Rows))
	return nil
}

// Run loads the dataset, serves HTTP until ctx is cancelled and then shuts
// everything down.
func (a *Application) Run(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("addr", a.Server.Addr),
		slog.String("data_dir", a.Config.Data.Dir))

	if err := a.LoadDataset(ctx); err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	a.WebSocketHub.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Shutdown gracefully stops the server, the hub and the telemetry providers.
func (a *Application) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Logger.InfoContext(ctx, "Shutting down application")

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	a.WebSocketHub.Stop()
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "Application stopped")
	return nil
}
