package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"eventdash/internal/charts"
	"eventdash/internal/config"
	"eventdash/internal/dataprocessing"
	apierrors "eventdash/internal/errors"
	"eventdash/internal/exporter"
	"eventdash/internal/infrastructure"
	customMiddleware "eventdash/internal/middleware"
	"eventdash/internal/services"
	handlers "eventdash/internal/transport/http"
	"eventdash/internal/validation"
	ws "eventdash/internal/websocket"
	"eventdash/pkg/contracts"
	"eventdash/pkg/contracts/domain"
)

// SnapshotFile is the Parquet copy of the derived dataset written to the
// export directory at startup
const SnapshotFile = "derived_events.parquet"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	WebSocket     *ws.Handler

	collector *infrastructure.SystemMetricsCollector
	startTime time.Time
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dashboard *services.DashboardService
	Health    *services.HealthService
}

// NewApplication loads the configuration, initializes logging and builds
// the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from cfg. The event source is loaded here; a
// missing or unreadable source is fatal.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	ctx := context.Background()

	info := contracts.GetVersionInfo()
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", info.Version),
		slog.String("source", cfg.Data.SourceFile))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		startTime:     time.Now(),
	}

	dataset, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}

	a.initializeServices(dataset)

	a.collector, err = infrastructure.NewSystemMetricsCollector(otelProviders.Meter, a.startTime, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create system metrics collector: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// loadDataset reads the configured source and runs the derivation
// pipeline once. The dataset is immutable afterwards.
func (a *Application) loadDataset(ctx context.Context) (*domain.Dataset, error) {
	ctx, span := a.OTelProviders.Tracer.Start(ctx, "dataset.load")
	defer span.End()

	dataset, err := dataprocessing.LoadDataset(a.Config.Data.SourceFile,
		dataprocessing.ParseOptions{Sheet: a.Config.Data.Sheet}, a.Logger)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		a.Logger.ErrorContext(ctx, "Failed to load event source",
			slog.String("source", a.Config.Data.SourceFile),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	stats := dataset.Stats()
	infrastructure.RecordDatasetMetrics(ctx, a.Metrics, stats.RowsKept, stats.RowsDropped)
	infrastructure.AddSpanEvent(ctx, "dataset.loaded")

	if dir := a.Config.Data.ExportDir; dir != "" {
		a.writeSnapshot(ctx, dir, dataset)
	}

	return dataset, nil
}

// writeSnapshot exports the derived records as Parquet. Failure is logged
// and does not stop startup.
func (a *Application) writeSnapshot(ctx context.Context, dir string, dataset *domain.Dataset) {
	if err := validation.NewFileValidator(a.Logger).ValidateOutputDirectory(dir); err != nil {
		a.Logger.WarnContext(ctx, "Dataset snapshot skipped", slog.String("error", err.Error()))
		return
	}

	path := filepath.Join(dir, SnapshotFile)
	n, err := exporter.WriteDatasetFile(path, dataset)
	if err != nil {
		infrastructure.RecordSystemError(ctx, a.Metrics, "exporter")
		a.Logger.WarnContext(ctx, "Dataset snapshot failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}

	a.Logger.InfoContext(ctx, "Dataset snapshot written",
		slog.String("path", path),
		slog.Int("records", n))
}

// initializeServices wires the services around the loaded dataset
func (a *Application) initializeServices(dataset *domain.Dataset) {
	dashboard := services.NewDashboardService(dataset, services.DashboardConfig{
		Aggregator: dataprocessing.AggregatorConfig{
			TopDiagnoses:  a.Config.Data.TopDiagnoses,
			HistogramBins: a.Config.Data.HistogramBins,
		},
		Charts: charts.Config{
			Width:  a.Config.Charts.Width,
			Height: a.Config.Charts.Height,
		},
		CSVBOM: true,
	}, a.Metrics, a.OTelProviders.Tracer, a.Logger)

	a.Services = &ServiceContainer{
		Dashboard: dashboard,
		Health:    services.NewHealthService(services.ProbeDashboard(dashboard), a.Logger),
	}

	a.WebSocket = ws.NewHandler(dashboard, a.Config.WebSocket,
		a.Config.Security.AllowedOrigins, a.Metrics, a.Logger)
}

// setupRouter builds the route tree. /ws and /metrics sit outside the
// full middleware group: the session needs the raw connection for the
// upgrade.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Handle("/ws", a.WebSocket)
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	validator := customMiddleware.NewValidator()
	dashboard := handlers.NewDashboardHandler(a.Services.Dashboard, validator, a.Logger, a.ErrorHandler)
	page := handlers.NewPageHandler(a.Services.Dashboard, a.Logger, a.ErrorHandler)
	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				MaxAge:         300,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}

		r.With(dashboard.FiltersCtx).Get("/", page.ServeDashboard)

		r.Route("/api", func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Mount("/health", health.Routes())
			r.Get("/version", health.Version)

			r.Mount("/dashboard", dashboard.Routes())
		})
	})

	a.Router = r
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
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Server listening",
			slog.String("address", a.Server.Addr),
			slog.Int("records", a.Services.Dashboard.Dataset().Len()))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.collector.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("Shutdown requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.WebSocket.Shutdown()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}
