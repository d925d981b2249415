// Package stream turns node watch connections and aggregator polling into a
// single ordered event feed per observer session, degrading gracefully to
// polling when watch is unavailable.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkube/mkube-console/internal/cluster"
	"github.com/mkube/mkube-console/internal/infra/metrics"
)

// EventType discriminates the two kinds of data events a session emits.
type EventType string

const (
	// EventPodUpdate carries one replayed watch change record.
	EventPodUpdate EventType = "pod-update"

	// EventPodList carries the full merged pod collection from a poll.
	EventPodList EventType = "pod-list"
)

// Event is one discrete item of a session's feed.
type Event struct {
	Type EventType
	Data string
}

// Streamer is the session factory over the aggregator.
type Streamer struct {
	logger       *slog.Logger
	aggregator   *cluster.Aggregator
	pollInterval time.Duration
}

// NewStreamer creates a streamer polling at the given cadence once a
// session's replay buffer is exhausted.
func NewStreamer(logger *slog.Logger, aggregator *cluster.Aggregator, pollInterval time.Duration) *Streamer {
	return &Streamer{
		logger:       logger,
		aggregator:   aggregator,
		pollInterval: pollInterval,
	}
}

// Session is a pull-driven, infinite event sequence for one observer. Not
// safe for concurrent Next calls; one consumer per session.
type Session struct {
	id           string
	logger       *slog.Logger
	aggregator   *cluster.Aggregator
	pollInterval time.Duration

	// replay holds the buffered initial watch lines, consumed one event per
	// call until empty; after that the session polls forever.
	replay []string

	// idle sessions (empty registry) never emit a data event.
	idle bool

	closeOnce sync.Once
}

// NewSession opens watch connections to every node, buffers their initial
// change records for replay and returns the session. Nodes that refuse the
// watch are logged and skipped; with an empty registry the session is a
// no-op feed that never emits a data event.
func (s *Streamer) NewSession(ctx context.Context) *Session {
	id := uuid.NewString()
	sess := &Session{
		id:           id,
		logger:       s.logger.With("session", id),
		aggregator:   s.aggregator,
		pollInterval: s.pollInterval,
	}

	metrics.StreamSessionOpened()

	clients := s.aggregator.Clients()
	if len(clients) == 0 {
		sess.idle = true

		return sess
	}

	for _, c := range clients {
		resp, err := c.WatchPods(ctx)
		if err != nil {
			// Expected capability gap on agents without watch support.
			sess.logger.WarnContext(ctx, "watch not available",
				"node", c.Name(),
				"reason", err,
			)

			continue
		}

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				sess.replay = append(sess.replay, line)
			}
		}

		if err := scanner.Err(); err != nil {
			// Keep whatever was buffered before the connection broke.
			sess.logger.DebugContext(ctx, "watch body ended",
				"node", c.Name(),
				"reason", err,
			)
		}

		resp.Body.Close()
	}

	return sess
}

// ID returns the session identifier used for log correlation.
func (sess *Session) ID() string {
	return sess.id
}

// Next blocks until the next event is due and returns it. During replay each
// call pops one buffered watch line as a pod-update event; afterwards each
// call waits one poll interval and returns the full merged pod list as a
// pod-list event. It returns ctx.Err() when the observer disconnects, and
// never returns a partial event.
func (sess *Session) Next(ctx context.Context) (Event, error) {
	if len(sess.replay) > 0 {
		line := sess.replay[0]
		sess.replay = sess.replay[1:]

		return Event{Type: EventPodUpdate, Data: line}, nil
	}

	if sess.idle {
		<-ctx.Done()

		return Event{}, ctx.Err()
	}

	timer := time.NewTimer(sess.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-timer.C:
	}

	pods := sess.aggregator.ListAllPods(ctx)

	data, err := json.Marshal(pods)
	if err != nil {
		// corev1.Pod always marshals; guard anyway so a session survives.
		sess.logger.ErrorContext(ctx, "encode pod list", "reason", err)

		data = []byte("[]")
	}

	return Event{Type: EventPodList, Data: string(data)}, nil
}

// Close releases the session. Watch bodies are already drained and closed by
// NewSession, so this only settles accounting; it is safe to call twice.
func (sess *Session) Close() {
	sess.closeOnce.Do(func() {
		metrics.StreamSessionClosed()
		sess.logger.Debug("session closed")
	})
}
