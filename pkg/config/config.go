// Package config loads the bridge's YAML configuration. Values pass
// through environment expansion before decoding, so any string field may
// reference ${VAR}, ${VAR:-default} or $VAR.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentbench/a2abridge/pkg/a2a"
	"github.com/agentbench/a2abridge/pkg/httpclient"
	"github.com/agentbench/a2abridge/pkg/observability"
)

// AgentConfig is the connection section for the remote A2A agent.
type AgentConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AuthToken string `yaml:"auth_token,omitempty"`

	// Timeout is the per-exchange timeout in seconds. 0 means the default.
	Timeout int `yaml:"timeout,omitempty"`

	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
	CACertificate      string `yaml:"ca_certificate,omitempty"`
}

// LogConfig controls process logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// ObservabilityConfig groups tracing and metrics settings.
type ObservabilityConfig struct {
	Tracer  observability.TracerConfig  `yaml:"tracer,omitempty"`
	Metrics observability.MetricsConfig `yaml:"metrics,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	Agent         AgentConfig         `yaml:"agent"`
	Log           LogConfig           `yaml:"log,omitempty"`
	Observability ObservabilityConfig `yaml:"observability,omitempty"`
}

// SetDefaults fills zero values with working defaults.
func (c *Config) SetDefaults() {
	if c.Agent.Timeout == 0 {
		c.Agent.Timeout = int(a2a.DefaultTimeout / time.Second)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "simple"
	}
}

// Validate checks the config for obvious mistakes.
func (c *Config) Validate() error {
	if c.Agent.Endpoint == "" {
		return fmt.Errorf("agent.endpoint is required")
	}
	if c.Agent.Timeout < 0 {
		return fmt.Errorf("agent.timeout must not be negative")
	}
	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Port <= 0 {
		return fmt.Errorf("observability.metrics.port is required when metrics are enabled")
	}
	return nil
}

// A2A converts the agent section into a protocol client config.
func (c *Config) A2A() *a2a.Config {
	cfg := &a2a.Config{
		Endpoint:  c.Agent.Endpoint,
		AuthToken: c.Agent.AuthToken,
		Timeout:   time.Duration(c.Agent.Timeout) * time.Second,
	}
	if c.Agent.InsecureSkipVerify || c.Agent.CACertificate != "" {
		cfg.TLS = &httpclient.TLSConfig{
			InsecureSkipVerify: c.Agent.InsecureSkipVerify,
			CACertificate:      c.Agent.CACertificate,
		}
	}
	return cfg
}

// LoadFile reads, expands and decodes a YAML config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(data)
}

// Load decodes config bytes. The document is decoded to a generic tree
// first so environment references are expanded before the typed decode.
func Load(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expanded := ExpandEnvVarsInData(raw)
	normalized, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(normalized, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
