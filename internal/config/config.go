package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is used when neither the --config flag nor MKUBE_CONFIG is set.
	DefaultPath = "/etc/mkube-console/config.yaml"

	defaultClusterName    = "mkube"
	defaultListenPort     = 9090
	defaultMetricsPort    = 9091
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultHealthInterval = 15 * time.Second
	defaultPollInterval   = 3 * time.Second
	defaultNodeTimeout    = 10 * time.Second
)

// Config is the full console configuration: the YAML file defines the cluster
// (nodes, registry), env vars tune the ambient settings.
type Config struct {
	ClusterName string    `yaml:"cluster_name"`
	ListenPort  int       `yaml:"listen_port"`
	MetricsPort int       `yaml:"metrics_port"`
	Nodes       []NodeDef `yaml:"nodes"`

	// Mkube derives a single node named after the cluster when Nodes is empty.
	Mkube    *EndpointDef `yaml:"mkube"`
	Registry *EndpointDef `yaml:"registry"`
	LogsURL  string       `yaml:"logs_url"`

	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	HealthInterval time.Duration `yaml:"health_interval"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	NodeTimeout    time.Duration `yaml:"node_timeout"`
}

// NodeDef identifies one node agent in the static registry.
type NodeDef struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// EndpointDef points at an external HTTP service.
type EndpointDef struct {
	BaseURL string `yaml:"base_url"`
}

// Load reads the YAML file at path (falling back to MKUBE_CONFIG, then
// DefaultPath when path is empty), applies env overrides and validates the
// node registry. The node list is immutable for the process lifetime.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(envKeyConfigPath)
	}

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{
		ClusterName:    defaultClusterName,
		ListenPort:     defaultListenPort,
		MetricsPort:    defaultMetricsPort,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
		HealthInterval: defaultHealthInterval,
		PollInterval:   defaultPollInterval,
		NodeTimeout:    defaultNodeTimeout,
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	// No explicit nodes but an mkube endpoint: treat it as a one-node cluster.
	if len(cfg.Nodes) == 0 && cfg.Mkube != nil && cfg.Mkube.BaseURL != "" {
		cfg.Nodes = append(cfg.Nodes, NodeDef{
			Name:    cfg.ClusterName,
			Address: cfg.Mkube.BaseURL,
		})
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envKeyLogLevel); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv(envKeyLogFormat); v != "" {
		c.LogFormat = v
	}

	if err := overridePort(&c.ListenPort, envKeyListenPort); err != nil {
		return err
	}

	if err := overridePort(&c.MetricsPort, envKeyMetricsPort); err != nil {
		return err
	}

	if err := overrideDuration(&c.HealthInterval, envKeyHealthInterval, envMinHealthInterval); err != nil {
		return err
	}

	if err := overrideDuration(&c.PollInterval, envKeyPollInterval, envMinPollInterval); err != nil {
		return err
	}

	return overrideDuration(&c.NodeTimeout, envKeyNodeTimeout, envMinNodeTimeout)
}

func (c *Config) validate() error {
	if len(c.Nodes) == 0 {
		return ErrNoNodes
	}

	seen := make(map[string]struct{}, len(c.Nodes))

	for _, n := range c.Nodes {
		if n.Name == "" || n.Address == "" {
			return fmt.Errorf("%w: name=%q address=%q", ErrInvalidNode, n.Name, n.Address)
		}

		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.Name)
		}

		seen[n.Name] = struct{}{}
	}

	if c.ListenPort == c.MetricsPort {
		return fmt.Errorf("%w: %d", ErrPortConflict, c.ListenPort)
	}

	return nil
}

// ListenAddr returns the console server bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.ListenPort)
}

// MetricsAddr returns the metrics server bind address.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf(":%d", c.MetricsPort)
}

// RegistryURL returns the container registry base URL, empty when unset.
func (c *Config) RegistryURL() string {
	if c.Registry == nil {
		return ""
	}

	return c.Registry.BaseURL
}

func overridePort(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var port int
	if _, err := fmt.Sscanf(v, "%d", &port); err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, v, err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("parse %s=%q: port out of range", key, v)
	}

	*dst = port

	return nil
}

func overrideDuration(dst *time.Duration, key string, minimum time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, v, err)
	}

	if d < minimum {
		return fmt.Errorf("parse %s=%q: below minimum %s", key, v, minimum)
	}

	*dst = d

	return nil
}
