// Package config provides configuration loading and management for Planforge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Planforge configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Agents    AgentsConfig    `yaml:"agents"`
	Planning  PlanningConfig  `yaml:"planning"`
	NATS      NATSConfig      `yaml:"nats"`
	Reference ReferenceConfig `yaml:"reference"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Listen is the address to bind (default ":8080").
	Listen string `yaml:"listen"`
	// ShutdownTimeout bounds connection draining on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AgentEndpoint configures one specialist agent's model endpoint.
type AgentEndpoint struct {
	// Provider is the LLM provider ("anthropic", "openai", "ollama").
	Provider string `yaml:"provider"`
	// Model is the provider-specific model identifier.
	Model string `yaml:"model"`
	// URL is the API base URL (empty = provider default).
	URL string `yaml:"url"`
}

// AgentsConfig configures the two specialist agents.
type AgentsConfig struct {
	// Visual is the endpoint for the visual/UX specialist.
	Visual AgentEndpoint `yaml:"visual"`
	// Architecture is the endpoint for the structural specialist.
	Architecture AgentEndpoint `yaml:"architecture"`
	// Temperature applies to both agents (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// Timeout is the per-agent invocation ceiling.
	Timeout time.Duration `yaml:"timeout"`
	// MaxTokens limits each agent response.
	MaxTokens int `yaml:"max_tokens"`
}

// PlanningConfig bounds one orchestrator run.
type PlanningConfig struct {
	// RunDeadline is the hard wall-clock ceiling for a whole run. Must
	// exceed the agent timeout and leave margin under the host's budget.
	RunDeadline time.Duration `yaml:"run_deadline"`
	// EscalationThreshold is the disagreement score at or above which a
	// run escalates (0 = built-in default).
	EscalationThreshold float64 `yaml:"escalation_threshold"`
	// SweepInterval is how often expired sessions are swept.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// NATSConfig configures the optional outcome publisher.
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled).
	URL string `yaml:"url"`
	// SubjectPrefix is the subject prefix for outcome events.
	SubjectPrefix string `yaml:"subject_prefix"`
}

// ReferenceConfig configures reference-URL ingestion.
type ReferenceConfig struct {
	// Enabled turns reference ingestion on.
	Enabled bool `yaml:"enabled"`
	// Timeout bounds one reference fetch.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Agents: AgentsConfig{
			Visual: AgentEndpoint{
				Provider: "anthropic",
				Model:    "claude-sonnet-4-20250514",
			},
			Architecture: AgentEndpoint{
				Provider: "anthropic",
				Model:    "claude-sonnet-4-20250514",
			},
			Temperature: 0.2,
			Timeout:     2 * time.Minute,
			MaxTokens:   4096,
		},
		Planning: PlanningConfig{
			RunDeadline:   8 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		NATS: NATSConfig{
			URL:           "",
			SubjectPrefix: "planforge.plan",
		},
		Reference: ReferenceConfig{
			Enabled: true,
			Timeout: 15 * time.Second,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Agents.Visual.Provider == "" || c.Agents.Visual.Model == "" {
		return fmt.Errorf("agents.visual provider and model are required")
	}
	if c.Agents.Architecture.Provider == "" || c.Agents.Architecture.Model == "" {
		return fmt.Errorf("agents.architecture provider and model are required")
	}
	if c.Agents.Temperature < 0 || c.Agents.Temperature > 1 {
		return fmt.Errorf("agents.temperature must be between 0 and 1")
	}
	if c.Agents.Timeout <= 0 {
		return fmt.Errorf("agents.timeout must be positive")
	}
	if c.Planning.RunDeadline <= c.Agents.Timeout {
		return fmt.Errorf("planning.run_deadline (%s) must exceed agents.timeout (%s)",
			c.Planning.RunDeadline, c.Agents.Timeout)
	}
	if c.Planning.EscalationThreshold < 0 || c.Planning.EscalationThreshold > 1 {
		return fmt.Errorf("planning.escalation_threshold must be in [0,1]")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Listen != "" {
		c.Server.Listen = other.Server.Listen
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	// Agents
	mergeEndpoint(&c.Agents.Visual, other.Agents.Visual)
	mergeEndpoint(&c.Agents.Architecture, other.Agents.Architecture)
	if other.Agents.Temperature != 0 {
		c.Agents.Temperature = other.Agents.Temperature
	}
	if other.Agents.Timeout != 0 {
		c.Agents.Timeout = other.Agents.Timeout
	}
	if other.Agents.MaxTokens != 0 {
		c.Agents.MaxTokens = other.Agents.MaxTokens
	}

	// Planning
	if other.Planning.RunDeadline != 0 {
		c.Planning.RunDeadline = other.Planning.RunDeadline
	}
	if other.Planning.EscalationThreshold != 0 {
		c.Planning.EscalationThreshold = other.Planning.EscalationThreshold
	}
	if other.Planning.SweepInterval != 0 {
		c.Planning.SweepInterval = other.Planning.SweepInterval
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	// Reference
	if other.Reference.Enabled {
		c.Reference.Enabled = true
	}
	if other.Reference.Timeout != 0 {
		c.Reference.Timeout = other.Reference.Timeout
	}
}

func mergeEndpoint(dst *AgentEndpoint, src AgentEndpoint) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.URL != "" {
		dst.URL = src.URL
	}
}
