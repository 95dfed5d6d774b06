package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/V4T54L/defect-lens/internal/adapter/api"
	"github.com/V4T54L/defect-lens/internal/adapter/api/handler"
	"github.com/V4T54L/defect-lens/internal/adapter/llm"
	"github.com/V4T54L/defect-lens/internal/adapter/metrics"
	"github.com/V4T54L/defect-lens/internal/adapter/pii"
	"github.com/V4T54L/defect-lens/internal/adapter/repository/journal"
	redisrepo "github.com/V4T54L/defect-lens/internal/adapter/repository/redis"
	"github.com/V4T54L/defect-lens/internal/domain"
	"github.com/V4T54L/defect-lens/internal/pkg/config"
	"github.com/V4T54L/defect-lens/internal/pkg/logger"
	"github.com/V4T54L/defect-lens/internal/usecase"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting redaction service", "backend", cfg.RedactorBackend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewRedactorMetrics(reg)

	// Backend
	var backend domain.Redactor
	switch cfg.RedactorBackend {
	case config.BackendRules:
		backend = pii.NewRedactor(log)
	default:
		if cfg.NvidiaAPIKey == "" {
			log.Warn("NVIDIA_API_KEY is not set, upstream calls will be rejected")
		}
		backend = llm.NewChatRedactor(llm.Options{
			BaseURL:          cfg.LLMBaseURL,
			APIKey:           cfg.NvidiaAPIKey,
			Model:            cfg.LLMModel,
			Timeout:          cfg.LLMTimeout,
			MaxResponseBytes: cfg.MaxResponseBytes,
			RatePerSecond:    cfg.LLMRateLimit,
			Burst:            cfg.LLMRateBurst,
		}, log)
	}

	// Cache (optional)
	var cache domain.RedactionCache
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		redisCache := redisrepo.NewRedactionCache(redisClient, cfg.RedactionCacheTTL, log)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, cache will start disabled", "error", err)
			redisCache.Disable(err)
		}
		go redisCache.StartHealthCheck(ctx, healthCheckInterval)
		cache = redisCache
	}

	// Safety journal (optional)
	var journalRepo domain.JournalRepository
	if cfg.JournalDir != "" {
		repo, err := journal.NewRepository(cfg.JournalDir, cfg.JournalSegmentSize, cfg.JournalMaxDiskSize, log)
		if err != nil {
			log.Error("failed to open safety journal", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		journalRepo = repo
	}

	redactUseCase := usecase.NewRedactReportUseCase(backend, cache, journalRepo, m, cfg.RedactorBackend, log)
	auditUseCase := usecase.NewAuditUseCase(journalRepo)
	redactHandler := handler.NewRedactHandler(redactUseCase, auditUseCase, log, cfg.MaxRequestBytes)

	redactorServer := &http.Server{
		Addr:              cfg.RedactorServerAddr,
		Handler:           api.NewRedactorRouter(log, redactHandler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	adminServer := &http.Server{
		Addr:              cfg.AdminServerAddr,
		Handler:           api.NewAdminRouter(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(gctx, redactorServer, "redaction server", log) })
	g.Go(func() error { return serve(gctx, adminServer, "admin & metrics server", log) })

	if err := g.Wait(); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	log.Info("redaction service shut down gracefully")
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, name string, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting "+name, "addr", srv.Addr)
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

	log.Info("shutting down " + name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
