// Package app wires configuration, the node client registry, the aggregator
// and the servers together and owns the process lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mkube/mkube-console/internal/cluster"
	"github.com/mkube/mkube-console/internal/config"
	"github.com/mkube/mkube-console/internal/httpserver"
	"github.com/mkube/mkube-console/internal/infra/appstate"
	"github.com/mkube/mkube-console/internal/infra/shutdown"
	"github.com/mkube/mkube-console/internal/nodeclient"
	"github.com/mkube/mkube-console/internal/registry"
	"github.com/mkube/mkube-console/internal/stream"
	"github.com/mkube/mkube-console/internal/ui"
)

// App is the assembled process.
type App struct {
	logger     *slog.Logger
	appState   *appstate.AppState
	signals    <-chan os.Signal
	components []component
}

// New builds all components from config. Node clients are constructed once
// here and live for the process lifetime.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	appState *appstate.AppState,
	signals <-chan os.Signal,
) (*App, error) {
	clients := make([]*nodeclient.Client, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		clients = append(clients, nodeclient.New(n.Name, n.Address, cfg.NodeTimeout))
	}

	aggregator := cluster.NewAggregator(logger, clients)
	healthChecker := cluster.NewHealthChecker(logger, aggregator, cfg.HealthInterval)
	streamer := stream.NewStreamer(logger, aggregator, cfg.PollInterval)
	registryClient := registry.New(cfg.RegistryURL())

	renderer, err := ui.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("build ui renderer: %w", err)
	}

	consoleServer := httpserver.New(
		logger,
		appState,
		aggregator,
		streamer,
		registryClient,
		renderer,
		cfg.ClusterName,
		cfg.ListenAddr(),
	)
	metricsServer := httpserver.NewMetricsServer(logger, cfg.MetricsAddr())

	return &App{
		logger:   logger,
		appState: appState,
		signals:  signals,
		// Start order; shutdown runs in reverse.
		components: []component{healthChecker, metricsServer, consoleServer},
	}, nil
}

// Run starts every component, marks the process running once all are ready
// and blocks until a termination signal, then shuts down gracefully.
func (a *App) Run(originCtx context.Context) error {
	ctx, cancel := context.WithCancel(originCtx)
	defer cancel()

	handler := shutdown.New(a.logger, a.signals)
	go handler.HandleSignals(ctx, cancel)

	if err := a.appState.SetStarting(ctx); err != nil {
		return fmt.Errorf("set starting state: %w", err)
	}

	started := make([]shutdown.Shutdowner, 0, len(a.components))

	for _, c := range a.components {
		if err := c.Start(ctx); err != nil {
			// Unwind whatever already came up.
			startErr := fmt.Errorf("start %s: %w", c.Name(), err)

			if shutdownErr := shutdown.GracefulShutdown(ctx, a.logger, a.appState, started); shutdownErr != nil {
				a.logger.ErrorContext(ctx, "shutdown after failed start", "reason", shutdownErr)
			}

			return startErr
		}

		started = append(started, c)
	}

	for _, c := range a.components {
		select {
		case <-c.Ready():
		case <-ctx.Done():
			return shutdown.GracefulShutdown(ctx, a.logger, a.appState, started)
		}
	}

	if err := a.appState.SetRunning(ctx); err != nil {
		return fmt.Errorf("set running state: %w", err)
	}

	a.logger.InfoContext(ctx, "mkube-console running")

	<-ctx.Done()

	return shutdown.GracefulShutdown(ctx, a.logger, a.appState, started)
}
