package cluster

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkube/mkube-console/internal/infra/metrics"
	"github.com/mkube/mkube-console/internal/infra/shutdown"
)

// HealthChecker pings every node client on a fixed interval, keeping the
// liveness state fresh for the scheduler. It runs independently of request
// traffic and a single node's failure never disturbs the loop.
type HealthChecker struct {
	logger     *slog.Logger
	aggregator *Aggregator
	interval   time.Duration
	ready      chan struct{}
	doneCh     chan struct{}
	inShutdown atomic.Bool
}

// NewHealthChecker creates a health checker over the aggregator's registry.
func NewHealthChecker(logger *slog.Logger, aggregator *Aggregator, interval time.Duration) *HealthChecker {
	return &HealthChecker{
		logger:     logger,
		aggregator: aggregator,
		interval:   interval,
		ready:      make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

var _ shutdown.Shutdowner = (*HealthChecker)(nil)

// Name returns the name of the health checker component.
func (h *HealthChecker) Name() string {
	return "health-checker"
}

// Start launches the check loop in a goroutine.
func (h *HealthChecker) Start(ctx context.Context) error {
	if h.inShutdown.Load() {
		h.logger.InfoContext(ctx, "health checker is shutting down, skipping start")

		return nil
	}

	go h.run(ctx)

	return nil
}

// Ready returns a channel closed after the first full sweep, so liveness
// queries have a complete picture before the process reports ready.
func (h *HealthChecker) Ready() <-chan struct{} {
	return h.ready
}

// Shutdown waits for the check loop to observe cancellation and exit.
func (h *HealthChecker) Shutdown(ctx context.Context) error {
	if !h.inShutdown.CompareAndSwap(false, true) {
		h.logger.ErrorContext(ctx, "health checker is already shutting down, skipping shutdown")

		return nil
	}

	defer func() {
		h.logger.InfoContext(ctx, "health checker shut down")
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.doneCh:
		return nil
	}
}

func (h *HealthChecker) run(ctx context.Context) {
	defer close(h.doneCh)

	logger := h.logger.With("component", "health-checker")

	// First sweep runs immediately so the cluster has a full liveness
	// picture before any request is served.
	h.sweep(ctx, logger)
	close(h.ready)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if h.inShutdown.Load() {
			logger.InfoContext(ctx, "terminating health check loop")

			return
		}

		select {
		case <-ticker.C:
			h.sweep(ctx, logger)
		case <-ctx.Done():
			logger.InfoContext(ctx, "terminating health check loop")

			return
		}
	}
}

// sweep pings all nodes in parallel and waits for the stragglers; each ping
// only mutates its own node's liveness.
func (h *HealthChecker) sweep(ctx context.Context, logger *slog.Logger) {
	var wg sync.WaitGroup

	for _, c := range h.aggregator.Clients() {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := c.Ping(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"node", c.Name(),
					"reason", err,
				)
				metrics.RecordNodePingFailure(c.Name())
			}
		}()
	}

	wg.Wait()
}
