package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/V4T54L/defect-lens/internal/adapter/api"
	"github.com/V4T54L/defect-lens/internal/adapter/api/handler"
	"github.com/V4T54L/defect-lens/internal/adapter/metrics"
	"github.com/V4T54L/defect-lens/internal/adapter/redaction"
	"github.com/V4T54L/defect-lens/internal/adapter/repository/catalog"
	"github.com/V4T54L/defect-lens/internal/adapter/repository/postgres"
	"github.com/V4T54L/defect-lens/internal/domain"
	"github.com/V4T54L/defect-lens/internal/pkg/config"
	"github.com/V4T54L/defect-lens/internal/pkg/logger"
	"github.com/V4T54L/defect-lens/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lensMetrics := metrics.NewLensMetrics(reg)

	// --- Defect Catalog ---
	repo, closeRepo, err := openDefectRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open defect repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	defects, err := usecase.NewLoadDefectsUseCase(repo, logger, 3, 2*time.Second).Load(ctx)
	if err != nil {
		logger.Error("failed to load defects", "error", err)
		os.Exit(1)
	}

	// --- Session and View Stream ---
	client := redaction.NewClient(cfg.RedactorURL, cfg.RedactionTimeout, cfg.MaxResponseBytes, logger)

	var panel *usecase.ReportPanel
	broker := handler.NewViewBroker(ctx, func() any { return panel.Render() }, lensMetrics, logger)
	session := usecase.NewSession(defects, client, logger,
		usecase.WithRedactionTimeout(cfg.RedactionTimeout),
		usecase.WithChangeHook(broker.Notify),
		usecase.WithMetrics(lensMetrics),
	)
	defer session.Close()
	panel = usecase.NewReportPanel(session)
	session.Start()

	// --- Servers ---
	sessionHandler := handler.NewSessionHandler(session, panel, logger, cfg.MaxRequestBytes)
	lensServer := &http.Server{
		Addr:              cfg.LensServerAddr,
		Handler:           api.NewLensRouter(logger, sessionHandler, broker),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: the view stream is long-lived.
	}
	adminServer := &http.Server{
		Addr:              cfg.AdminServerAddr,
		Handler:           api.NewAdminRouter(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(gctx, lensServer, "lens api server", logger) })
	g.Go(func() error { return serve(gctx, adminServer, "admin & metrics server", logger) })

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("servers shut down gracefully")
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, name string, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting "+name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down " + name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDefectRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.DefectRepository, func(), error) {
	if cfg.PostgresURL == "" {
		repo, err := catalog.Load(cfg.DefectCatalogPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using YAML defect catalog", "path", cfg.DefectCatalogPath)
		return repo, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("connected to postgres")
	return postgres.NewDefectRepository(db, logger), func() { db.Close() }, nil
}
