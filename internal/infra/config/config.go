package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Store        StoreConfig        `yaml:"store"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Logger       LoggerConfig       `yaml:"logger"`
	Tracer       TracerConfig       `yaml:"tracer"`
}

// OrchestratorConfig identifies this process on the ledger.
type OrchestratorConfig struct {
	// Address is the orchestrator's own ledger address, the
	// destination of recalled credits.
	Address string `yaml:"address"`
}

// StoreConfig locates the agent database.
type StoreConfig struct {
	Path string `yaml:"path"` // default: "./data/clutch.db"
}

// LedgerConfig configures the remote credits/transfer service client.
// Timeouts are duration strings ("10s", "1m").
type LedgerConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIToken    string `yaml:"api_token,omitempty"`
	ConnTimeout string `yaml:"conn_timeout"` // default: 10s
	RespTimeout string `yaml:"resp_timeout"` // default: 30s
	// RequestsPerSec throttles outbound ledger calls. Zero disables
	// throttling.
	RequestsPerSec float64       `yaml:"requests_per_sec"`
	Burst          int           `yaml:"burst"` // default: 1 when throttled
	Breaker        BreakerConfig `yaml:"breaker"`
}

// ConnTimeoutDuration returns the parsed connect timeout.
func (c LedgerConfig) ConnTimeoutDuration() time.Duration {
	return parseDuration(c.ConnTimeout, 10*time.Second)
}

// RespTimeoutDuration returns the parsed response timeout.
func (c LedgerConfig) RespTimeoutDuration() time.Duration {
	return parseDuration(c.RespTimeout, 30*time.Second)
}

// BreakerConfig configures the circuit breaker around the ledger
// client. Zero values fall back to the ledger adapter's defaults.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the
	// circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before a half-open
	// probe is allowed. Duration string.
	Timeout string `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing
	// failure counts. Duration string; empty means failures never
	// reset until the circuit opens.
	Interval string `yaml:"interval"`
}

// TimeoutDuration returns the parsed open-state timeout, zero when
// unset.
func (c BreakerConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 0)
}

// IntervalDuration returns the parsed closed-state interval, zero when
// unset.
func (c BreakerConfig) IntervalDuration() time.Duration {
	return parseDuration(c.Interval, 0)
}

// LoggerConfig controls structured logging output.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig controls OpenTelemetry tracing.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Load reads, parses, defaults, and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Path == "" {
		c.Store.Path = "./data/clutch.db"
	}
	if c.Ledger.RequestsPerSec > 0 && c.Ledger.Burst <= 0 {
		c.Ledger.Burst = 1
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
	if c.Tracer.Enabled && c.Tracer.Exporter == "" {
		c.Tracer.Exporter = "stdout"
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Orchestrator.Address == "" {
		return fmt.Errorf("config: orchestrator.address is required")
	}
	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("config: ledger.base_url is required")
	}
	switch c.Logger.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: logger.format %q not supported", c.Logger.Format)
	}
	if c.Ledger.RequestsPerSec < 0 {
		return fmt.Errorf("config: ledger.requests_per_sec must not be negative")
	}
	for name, v := range map[string]string{
		"ledger.conn_timeout":     c.Ledger.ConnTimeout,
		"ledger.resp_timeout":     c.Ledger.RespTimeout,
		"ledger.breaker.timeout":  c.Ledger.Breaker.Timeout,
		"ledger.breaker.interval": c.Ledger.Breaker.Interval,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// parseDuration parses a duration string, falling back when empty or
// malformed. Validate catches malformed values at load time; the
// fallback here covers hand-built configs.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
