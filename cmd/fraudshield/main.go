// FraudShield - Batch UPI fraud detection and network analysis.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/technoKC/fraud-shield/internal/api"
	"github.com/technoKC/fraud-shield/internal/bus"
	"github.com/technoKC/fraud-shield/internal/cache"
	"github.com/technoKC/fraud-shield/internal/domain"
	"github.com/technoKC/fraud-shield/internal/engine"
	"github.com/technoKC/fraud-shield/internal/monitor"
	"github.com/technoKC/fraud-shield/internal/override"
	"github.com/technoKC/fraud-shield/internal/repository"
	"github.com/technoKC/fraud-shield/internal/rules"
	"github.com/technoKC/fraud-shield/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("FRAUDSHIELD_TIER") == "pro" {
		cfg = domain.ProConfig()
	}
	applyEnvOverrides(cfg)

	setupLogger(cfg.Logging)

	slog.Info("starting fraudshield",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Screening Engine
	screening, err := rules.NewScreeningEngine()
	if err != nil {
		slog.Error("failed to initialize screening engine", "error", err)
		os.Exit(1)
	}
	defer screening.Close()

	// Load screening rules from the repository (configure via POST /rules)
	if err := loadScreeningRules(ctx, repo, screening); err != nil {
		slog.Error("failed to load screening rules", "error", err)
		os.Exit(1)
	}
	slog.Info("screening engine initialized", "rules_count", screening.RulesCount())

	// Initialize Analysis Engine
	eng := engine.New(cfg.Engine, screening)
	slog.Info("analysis engine initialized", "max_workers", cfg.Engine.MaxWorkers)

	// Initialize Override Store, seeded from the repository
	overrides := override.NewMemoryStore()
	defer overrides.Close()
	if err := loadOverrides(ctx, repo, overrides); err != nil {
		slog.Error("failed to load overrides", "error", err)
		os.Exit(1)
	}

	// Initialize Behavior Monitor
	patternStore, err := newPatternStore(cfg)
	if err != nil {
		slog.Error("failed to initialize pattern store", "error", err)
		os.Exit(1)
	}
	defer patternStore.Close()
	mon := monitor.New(patternStore, cfg.Monitor, slog.Default())
	slog.Info("behavior monitor initialized")

	// Initialize async Worker
	asyncWorker := worker.NewWorker(busImpl, mon)
	if err := asyncWorker.Start(); err != nil {
		slog.Error("failed to start async worker", "error", err)
	} else {
		slog.Info("async worker started")
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, eng, screening, repo, cacheImpl, busImpl, overrides, mon, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("fraudshield is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop async worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("fraudshield shutdown complete")
}

func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("FRAUDSHIELD_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// applyEnvOverrides lets deployment environments adjust the tier defaults.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("FRAUDSHIELD_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FRAUDSHIELD_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("FRAUDSHIELD_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("FRAUDSHIELD_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("FRAUDSHIELD_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("FRAUDSHIELD_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("FRAUDSHIELD_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("FRAUDSHIELD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FRAUDSHIELD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// newPatternStore picks the monitor backend by tier: in-memory ring buffers
// for Community, Redis lists for Pro.
func newPatternStore(cfg *domain.Config) (monitor.PatternStore, error) {
	if cfg.Tier == domain.TierPro && cfg.Cache.RedisAddr != "" {
		return monitor.NewRedisStore(cfg.Cache)
	}
	return monitor.NewMemoryStore(), nil
}

// loadScreeningRules loads persisted rules into the screening engine.
// Rules are configured via POST /rules - there are no hardcoded defaults.
func loadScreeningRules(ctx context.Context, repo domain.Repository, screening *rules.ScreeningEngine) error {
	stored, err := repo.ListScreeningRules(ctx)
	if err != nil {
		slog.Warn("failed to list screening rules", "error", err)
		return nil // Start empty - rules can be added via API
	}

	if len(stored) == 0 {
		slog.Info("no screening rules persisted - configure via POST /rules API")
		return nil
	}

	ruleList := make([]domain.ScreeningRule, 0, len(stored))
	for _, rule := range stored {
		ruleList = append(ruleList, *rule)
	}

	slog.Info("loading screening rules", "count", len(ruleList))
	return screening.Reload(ruleList)
}

// loadOverrides seeds the in-memory override store from the repository so
// analyst statuses survive restarts.
func loadOverrides(ctx context.Context, repo domain.Repository, store domain.OverrideStore) error {
	stored, err := repo.ListOverrides(ctx)
	if err != nil {
		slog.Warn("failed to list persisted overrides", "error", err)
		return nil
	}

	for _, ov := range stored {
		if err := store.Set(ctx, *ov); err != nil {
			return err
		}
	}

	if len(stored) > 0 {
		slog.Info("loaded persisted overrides", "count", len(stored))
	}
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              FRAUDSHIELD                  ║")
	fmt.Println("  ║     UPI Fraud Detection & Analysis        ║")
	fmt.Println("  ║      Every batch, fully explained.        ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /detect                     - Analyze a CSV batch")
	fmt.Println("    GET  /reports/{id}               - Get a cached report")
	fmt.Println("    PUT  /transactions/{id}/status   - Set a manual status")
	fmt.Println("    GET  /overrides                  - List manual statuses")
	fmt.Println("    GET  /rules                      - List screening rules")
	fmt.Println("    POST /rules                      - Create a screening rule")
	fmt.Println("    POST /rules/reload               - Hot-reload screening rules")
	fmt.Println("    GET  /security/dashboard         - Security monitor data")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println()
}
