// Package cli implements the dpuwatch command line interface.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/dpuwatch/dpuwatch/internal/control"
	"github.com/dpuwatch/dpuwatch/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "dpuwatch",
	Short: "DPU fleet health monitoring and recovery service",
	Long:  `dpuwatch monitors DPU card health, classifies failures, and runs recovery recipes across the fleet.`,
	Run:   runDaemon,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// initLogging installs the global tint handler.
func initLogging(level string) {
	slogLevel := slog.LevelInfo
	if isDebug || level == "debug" {
		slogLevel = slog.LevelDebug
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})))
}

// loadService loads config and wires a Service. Shared by all subcommands.
func loadService(ctx context.Context) (*control.Service, *config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		initLogging("")
		return nil, nil, err
	}
	initLogging(cfg.Logging.Level)

	svc, err := control.NewService(ctx, *cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, _, err := loadService(ctx)
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("failed to start service", "error", err)
		os.Exit(1)
	}

	slog.Info("dpuwatch started", "config", cfgPath)

	sig := <-sigChan
	slog.Info("received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
		os.Exit(1)
	}
}
