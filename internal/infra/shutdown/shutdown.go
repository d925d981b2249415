package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 5 * time.Second

// Notify returns a channel that will receive SIGTERM and SIGINT signals.
// This should be called as the first thing in main() before any other initialization.
func Notify() <-chan os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)

	return signals
}

// Handler cancels the run context when a termination signal arrives.
type Handler struct {
	logger  *slog.Logger
	signals <-chan os.Signal
}

// New creates a new shutdown handler.
func New(logger *slog.Logger, signals <-chan os.Signal) *Handler {
	return &Handler{
		logger:  logger,
		signals: signals,
	}
}

// HandleSignals blocks until a termination signal or context cancellation,
// then invokes cancel.
func (h *Handler) HandleSignals(ctx context.Context, cancel func()) {
	select {
	case <-ctx.Done():
		h.logger.InfoContext(ctx, "terminating signal handler due to context done")

		return
	case sig := <-h.signals:
		h.logger.InfoContext(ctx, "received termination signal, terminating", "signal", sig.String())
	}

	cancel()
}

// GracefulShutdown shuts down the registered components with a timeout,
// in reverse registration order so dependents go down before dependencies.
func GracefulShutdown(
	originCtx context.Context,
	logger *slog.Logger,
	appState appstater,
	shutdowners []Shutdowner,
) error {
	if err := appState.SetTerminating(originCtx); err != nil {
		logger.ErrorContext(originCtx, "failed to set terminating state", "reason", err)

		return fmt.Errorf("set terminating application state: %w", err)
	}

	// Shutdown must proceed even though originCtx is already cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(originCtx), defaultShutdownTimeout)
	defer cancel()

	var errs error

	for i := len(shutdowners) - 1; i >= 0; i-- {
		start := time.Now()
		shutdowner := shutdowners[i]

		if err := shutdowner.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "component shutdown failed",
				"component", shutdowner.Name(),
				"duration", time.Since(start),
				"reason", err,
			)

			errs = errors.Join(errs, err)

			continue
		}

		logger.InfoContext(ctx, "component shutdown completed",
			"component", shutdowner.Name(),
			"duration", time.Since(start),
		)
	}

	if err := appState.SetTerminated(ctx); err != nil {
		errs = errors.Join(errs, fmt.Errorf("set terminated application state: %w", err))
	}

	return errs
}
