package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkube/mkube-console/internal/app"
	"github.com/mkube/mkube-console/internal/config"
	"github.com/mkube/mkube-console/internal/infra/appstate"
	"github.com/mkube/mkube-console/internal/infra/logging"
	"github.com/mkube/mkube-console/internal/infra/shutdown"
)

func main() {
	appStart := time.Now()
	// Start listening for signals immediately, before any other initialization.
	signals := shutdown.Notify()
	ctx := context.Background()

	var configPath string

	root := &cobra.Command{
		Use:           "mkube-console",
		Short:         "Kubernetes-compatible console over a fleet of mkube node agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(ctx, signals, appStart, configPath)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("path to the config file (default %s)", config.DefaultPath))

	if err := root.ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to run", "reason", err)
		// Give the logger some time to flush.
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "bye")
}

func run(ctx context.Context, signals <-chan os.Signal, appStart time.Time, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	appState := appstate.New(logger, appStart)

	application, err := app.New(logger, cfg, appState, signals)
	if err != nil {
		return fmt.Errorf("new application: %w", err)
	}

	return application.Run(ctx)
}
