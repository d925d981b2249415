package config

import "time"

// Env key constants. All console env vars use the MKUBE_ prefix; duration
// values support explicit units (e.g. 15s, 5m). Env vars override the YAML
// file, which overrides built-in defaults.

// Path to the YAML config file. The --config flag takes precedence.
const envKeyConfigPath = "MKUBE_CONFIG"

// Log level: debug, info, warn, error.
const envKeyLogLevel = "MKUBE_LOG_LEVEL"

// Log format: json or text.
const envKeyLogFormat = "MKUBE_LOG_FORMAT"

// Port for the console HTTP server (API, UI, SSE).
const envKeyListenPort = "MKUBE_LISTEN_PORT"

// Port for Prometheus metrics (GET /metrics).
const envKeyMetricsPort = "MKUBE_METRICS_PORT"

// Node agent health check interval. Units: s, m, h (e.g. 15s).
const (
	envKeyHealthInterval = "MKUBE_HEALTH_INTERVAL"
	envMinHealthInterval = time.Second
)

// Pod event stream poll interval. Units: s, m, h (e.g. 3s).
const (
	envKeyPollInterval = "MKUBE_POLL_INTERVAL"
	envMinPollInterval = time.Second
)

// Node agent request timeout. Units: s, m (e.g. 10s).
const (
	envKeyNodeTimeout = "MKUBE_NODE_TIMEOUT"
	envMinNodeTimeout = time.Second
)
