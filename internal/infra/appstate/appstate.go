package appstate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents the application lifecycle state.
type State string

const (
	// StateInit is the initial state when the application is created.
	StateInit State = "init"

	// StateStarting is the state while components are coming up.
	StateStarting State = "starting"

	// StateRunning is the state when the application is serving normally.
	StateRunning State = "running"

	// StateTerminating is the state while graceful shutdown runs.
	StateTerminating State = "terminating"

	// StateTerminated is the final state after shutdown completed.
	StateTerminated State = "terminated"
)

// AppState tracks the lifecycle state backing the healthz/readyz endpoints.
type AppState struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	startedAt time.Time
	readyAt   *time.Time
	state     State
}

// New creates an AppState in the init state.
func New(logger *slog.Logger, appStart time.Time) *AppState {
	return &AppState{
		logger:    logger,
		startedAt: appStart,
		state:     StateInit,
	}
}

// SetStarting transitions the state from Init to Starting.
func (s *AppState) SetStarting(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInit {
		return fmt.Errorf("set starting from %s: %w", s.state, ErrInvalidStateTransition)
	}

	return s.setState(StateStarting)
}

// SetRunning transitions the state from Starting to Running.
func (s *AppState) SetRunning(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStarting {
		return fmt.Errorf("set running from %s: %w", s.state, ErrInvalidStateTransition)
	}

	now := time.Now()
	s.readyAt = &now

	return s.setState(StateRunning)
}

// SetTerminating transitions the state to Terminating. Valid from any
// non-terminal state so a failed startup can still shut down cleanly.
func (s *AppState) SetTerminating(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTerminating || s.state == StateTerminated {
		return fmt.Errorf("set terminating from %s: %w", s.state, ErrInvalidStateTransition)
	}

	return s.setState(StateTerminating)
}

// SetTerminated transitions the state from Terminating to Terminated.
func (s *AppState) SetTerminated(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTerminating {
		return fmt.Errorf("set terminated from %s: %w", s.state, ErrInvalidStateTransition)
	}

	return s.setState(StateTerminated)
}

// GetState returns the current state.
func (s *AppState) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// GetStartTime returns the process start time.
func (s *AppState) GetStartTime() time.Time {
	return s.startedAt
}

// GetUptime returns the time elapsed since process start.
func (s *AppState) GetUptime() time.Duration {
	return time.Since(s.startedAt)
}

// IsHealthy reports whether the process should pass liveness checks.
func (s *AppState) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state != StateTerminating && s.state != StateTerminated
}

// IsReady reports whether the process should pass readiness checks.
func (s *AppState) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state == StateRunning
}

// setState mutates the state; callers must hold the write lock.
func (s *AppState) setState(next State) error {
	s.logger.Info("application state changed", "from", s.state, "to", next)
	s.state = next

	return nil
}
