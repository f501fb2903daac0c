package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/catalog"
	"github.com/boddenberg/household-hub-bfa/internal/config"
	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/handler"
	"github.com/boddenberg/household-hub-bfa/internal/infra/backend"
	"github.com/boddenberg/household-hub-bfa/internal/infra/cache"
	"github.com/boddenberg/household-hub-bfa/internal/infra/observability"
	"github.com/boddenberg/household-hub-bfa/internal/infra/resilience"
	"github.com/boddenberg/household-hub-bfa/internal/infra/statestore"
	"github.com/boddenberg/household-hub-bfa/internal/port"
	"github.com/boddenberg/household-hub-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend_url", cfg.BackendURL),
		zap.String("onboarding_store", cfg.OnboardingStore),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Strings("cors_origins", cfg.CORSOrigins),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "household-hub-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Catalog ---
	cat, err := catalog.Load()
	if err != nil {
		logger.Fatal("failed to load section catalog", zap.Error(err))
	}

	// --- Cache ---
	recordCache := cache.New[[]domain.Record](cfg.CacheTTL)
	defer recordCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("household-backend", logger)
	guard := resilience.NewGuard(cb, resilienceCfg)

	// --- Backend client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	backendClient := backend.NewClient(httpClient, cfg.BackendURL, cfg.BackendAPIKey, guard, logger)

	// --- Onboarding state store ---
	stateStore, storePinger, closeStore, err := openStateStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("failed to open onboarding store",
			zap.String("store", cfg.OnboardingStore),
			zap.Error(err),
		)
	}
	defer closeStore()
	logger.Info("onboarding store ready", zap.String("store", cfg.OnboardingStore))

	// --- Services ---
	sectionSvc := service.NewSectionService(cat, backendClient, recordCache, metrics, logger)
	onboardingSvc := service.NewOnboardingService(
		stateStore,
		domain.DefaultStamper(),
		service.DefaultStepTargets(cfg.ProfileSetupPath, cfg.GmailOAuthURL),
		metrics,
		logger,
	)
	homeSvc := service.NewHomeService(sectionSvc, onboardingSvc, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Sections:    sectionSvc,
		Onboarding:  onboardingSvc,
		Home:        homeSvc,
		Tokens:      service.NewTokenService(cfg.JWTSecret),
		Backend:     backendClient,
		StateStore:  storePinger,
		CORSOrigins: cfg.CORSOrigins,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStateStore picks the onboarding store named by ONBOARDING_STORE.
// The memory store has nothing to ping, so its pinger is nil.
func openStateStore(ctx context.Context, cfg *config.Config) (port.OnboardingStateStore, handler.Pinger, func(), error) {
	switch cfg.OnboardingStore {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		pg, err := statestore.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return pg, pg, pg.Close, nil
	case "sqlite":
		lite, err := statestore.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return lite, lite, func() { _ = lite.Close() }, nil
	case "memory", "":
		return statestore.NewMemory(), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown onboarding store %q", cfg.OnboardingStore)
	}
}
