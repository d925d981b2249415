package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mkube/mkube-console/internal/stream"
)

// handlePodEvents streams pod state changes to the browser as server-sent
// events. The session handles watch replay and poll fallback; this handler
// only frames events and keeps the connection alive.
func (s *Server) handlePodEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)

		return
	}

	ctx := r.Context()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	session := s.streamer.NewSession(ctx)
	defer session.Close()

	s.logger.DebugContext(ctx, "pod event stream opened", "session", session.ID())

	events := make(chan stream.Event)

	go func() {
		defer close(events)

		for {
			ev, err := session.Next(ctx)
			if err != nil {
				// Observer disconnected.
				return
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}

			writeSSEEvent(w, ev)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent frames one event; multi-line data becomes multiple data
// lines so no payload can break the protocol.
func writeSSEEvent(w http.ResponseWriter, ev stream.Event) {
	fmt.Fprintf(w, "event: %s\n", ev.Type)

	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}

	fmt.Fprint(w, "\n")
}
