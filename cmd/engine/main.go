// Package main provides the entry point for the lay betting engine.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/lay-engine/internal/betfair"
	"github.com/yourusername/lay-engine/internal/config"
	"github.com/yourusername/lay-engine/internal/engine"
	"github.com/yourusername/lay-engine/internal/health"
	"github.com/yourusername/lay-engine/internal/logger"
	"github.com/yourusername/lay-engine/internal/metrics"
	"github.com/yourusername/lay-engine/internal/settlement"
	"github.com/yourusername/lay-engine/internal/store"
	"github.com/yourusername/lay-engine/internal/transport"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(runCmd)
}

var rootCmd = &cobra.Command{
	Use:   "lay-engine",
	Short: "Autonomous lay betting engine for exchange win markets",
	Long: `Discovers today's horse-racing win markets, monitors prices,
and lays the favourite inside the pre-off window according to the
configured staking rules.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return fmt.Errorf("loading secrets: %w", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"version":     Version,
		"commit":      GitCommit,
		"environment": cfg.App.Environment,
		"dry_run":     cfg.Engine.DryRun,
	}).Info("Lay engine starting")

	// exchange client over the rate-limited retrying transport
	httpLogger := log.New(os.Stdout, "exchange-http: ", log.LstdFlags)
	httpCfg := transport.DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.ExchangeTimeout()
	httpCfg.RateLimit = cfg.Betfair.RateLimit
	httpClient := transport.NewRateLimitedHTTPClient(httpCfg, httpLogger)
	defer httpClient.Close()

	exchange := betfair.NewClient(cfg.Betfair, httpClient, appLog)
	if !exchange.HasCredentials() {
		appLog.Warn("No exchange credentials configured, engine cannot be started until they are provided")
	}

	// dual-layer persistence: hot local file, best-effort S3 blob
	fileStore, err := store.NewFileStore(cfg.Store.LocalPath)
	if err != nil {
		return fmt.Errorf("opening local state store: %w", err)
	}
	var blobStore *store.BlobStore
	if cfg.Store.S3Enabled {
		blobStore, err = store.NewBlobStoreFromEnv(ctx, cfg.Store.S3Region, cfg.Store.S3Bucket, cfg.Store.S3Key)
		if err != nil {
			return fmt.Errorf("opening durable state store: %w", err)
		}
		appLog.WithField("bucket", cfg.Store.S3Bucket).Info("Durable state store enabled")
	}
	stateStore := store.NewManager(fileStore, blobStore, appLog)

	eng, err := engine.New(ctx, exchange, stateStore, cfg.EngineDefaults(), appLog)
	if err != nil {
		return fmt.Errorf("initialising engine: %w", err)
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				appLog.WithError(err).Error("Metrics server error")
			}
		}()
		appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server started")
	}

	healthSrv := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Port:        fmt.Sprintf("%d", cfg.Health.Port),
		Logger:      appLog,
		Engine:      engineStatus{eng},
	})
	if err := healthSrv.Start(ctx); err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}

	var settle *settlement.Service
	if cfg.Settlement.Enabled {
		settle = settlement.NewService(exchange, eng, cfg.Settlement.Schedule, appLog)
		if err := settle.Start(); err != nil {
			return fmt.Errorf("starting settlement sync: %w", err)
		}
	}

	if exchange.HasCredentials() {
		if res := eng.Start(ctx); res.Status != "ok" {
			appLog.WithField("reason", res.Message).Error("Engine did not start, waiting for operator action")
		}
	}
	healthSrv.SetReady(true)

	<-ctx.Done()
	appLog.Info("Shutdown signal received")

	shutdownCtx := context.Background()
	eng.Stop(shutdownCtx)
	if err := eng.Flush(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Final state flush failed")
	}
	if settle != nil {
		settle.Stop()
	}
	healthSrv.SetReady(false)
	appLog.Info("Lay engine stopped")
	return nil
}

// engineStatus adapts the engine to the health server's check interface
type engineStatus struct {
	e *engine.Engine
}

func (s engineStatus) Status() string { return string(s.e.Status()) }
