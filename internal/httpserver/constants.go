package httpserver

import "time"

const (
	readTimeout       = 3 * time.Second
	readHeaderTimeout = 3 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 1 << 12 // 4kb

	// The console server carries long-lived SSE responses, so it runs
	// without a write timeout; the metrics server keeps a short one.
	metricsWriteTimeout = 5 * time.Second

	// Cadence of SSE keep-alive comments on otherwise quiet streams.
	keepAliveInterval = 15 * time.Second
)
