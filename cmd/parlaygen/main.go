package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"parlaygen/internal/config"
	"parlaygen/internal/health"
	"parlaygen/internal/metrics"
	"parlaygen/internal/orchestrator"
	"parlaygen/internal/provider"
	"parlaygen/internal/ratelimit"
	"parlaygen/internal/registry"
	"parlaygen/internal/server"
	"parlaygen/internal/store"
)

const version = "1.0.0"

var (
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "parlaygen",
	Short: "parlaygen - multi-backend parlay generation service",
	Long: `parlaygen assembles correlated prediction sets for sporting events by
delegating to interchangeable text-generation backends, with health
tracking, retry/backoff, and a fallback chain.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the generation HTTP service",
	RunE:  runServe,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check connectivity of every configured backend and exit",
	RunE:  runProbe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("parlaygen " + version)
	},
}

// buildRegistry constructs and registers every configured backend. A
// backend that fails to construct (usually a missing API key) is skipped
// with a warning rather than aborting startup.
func buildRegistry(ctx context.Context, cfg *config.Config) *registry.Registry {
	reg := registry.New()
	for kind, bc := range cfg.Backends {
		backend, err := provider.NewBackend(ctx, provider.BackendConfig{
			Kind:       provider.Kind(kind),
			APIKey:     bc.APIKey,
			BaseURL:    bc.BaseURL,
			Model:      bc.Model,
			MaxTokens:  bc.MaxTokens,
			Timeout:    bc.Timeout.Std(),
			MaxRetries: bc.MaxRetries,
			BaseDelay:  bc.BaseDelay.Std(),
		}, logger)
		if err != nil {
			logger.Warn("skipping backend", zap.String("backend", kind), zap.Error(err))
			continue
		}
		if err := reg.Register(backend.Name(), backend); err != nil {
			logger.Warn("failed to register backend", zap.String("backend", kind), zap.Error(err))
		}
	}
	return reg
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	reg := buildRegistry(ctx, cfg)
	if reg.Len() == 0 {
		logger.Warn("no backends registered; generation requests will fail until one is configured")
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	monitor := health.NewMonitor(reg, logger,
		health.WithInterval(cfg.Health.Interval.Std()),
		health.WithStartupDelay(cfg.Health.StartupDelay.Std()),
		health.WithProbeTimeout(cfg.Health.ProbeTimeout.Std()),
	)
	monitor.Start()
	defer monitor.Stop()

	engine := orchestrator.New(reg, orchestrator.Options{
		Primary:            cfg.Generation.Primary,
		Fallbacks:          cfg.Generation.Fallbacks,
		FallbackEnabled:    cfg.Generation.FallbackEnabledOrDefault(),
		DefaultTemperature: cfg.Generation.Temperature,
		Gate:               orchestrator.ParseHealthGate(cfg.Generation.HealthGate),
	}, logger)

	serverOpts := server.Options{
		Engine:   engine,
		Registry: reg,
		Logger:   logger,
		Debug:    cfg.Server.Debug,
	}

	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		serverOpts.Limiter = ratelimit.New(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window.Std(), logger)
	}

	if cfg.History.Enabled {
		history, err := store.NewHistoryStore(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer history.Close()
		serverOpts.History = history
	}

	srv := server.New(serverOpts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	reg := buildRegistry(ctx, cfg)
	if reg.Len() == 0 {
		return fmt.Errorf("no backends configured")
	}

	monitor := health.NewMonitor(reg, logger)
	monitor.ProbeAll(ctx)

	failures := 0
	for _, rec := range reg.HealthSnapshot() {
		status := "ok"
		if !rec.Healthy {
			status = "FAIL: " + rec.LastError
			failures++
		}
		fmt.Printf("%-12s %8dms  %s\n", rec.Name, rec.Latency.Milliseconds(), status)
	}
	if failures > 0 {
		return fmt.Errorf("%d backend(s) unreachable", failures)
	}
	return nil
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
