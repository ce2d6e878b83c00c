// config.go - Configuration management for the holographic tracking daemon
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	// Group settings
	ModulusBits int    `json:"modulus_bits"`
	Generator   string `json:"generator"`
	Domain      string `json:"domain"`

	// Session settings
	NumAgents        int    `json:"num_agents"`
	MaxDepth         uint64 `json:"max_depth"`
	PrimeSearchBound uint64 `json:"prime_search_bound"`
	MaxOpLimit       uint64 `json:"max_op_limit"`
	JitterMinLoops   uint64 `json:"jitter_min_loops"`
	JitterMaxLoops   uint64 `json:"jitter_max_loops"`

	// File paths
	SnapshotLogPath string `json:"snapshot_log_path"`
	KeyDir          string `json:"key_dir"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Rate limiting
	RateLimitTokens   int `json:"rate_limit_tokens"`
	RateLimitRefill   int `json:"rate_limit_refill"`
	RateLimitPeriodMs int `json:"rate_limit_period_ms"`

	// Security
	EnableAudit  bool   `json:"enable_audit"`
	AuditLogPath string `json:"audit_log_path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ModulusBits:       2048,
		Generator:         "65537",
		Domain:            "holopass-demo",
		NumAgents:         10,
		MaxDepth:          4,
		PrimeSearchBound:  200000,
		MaxOpLimit:        1000000,
		JitterMinLoops:    1000,
		JitterMaxLoops:    5000,
		SnapshotLogPath:   "snapshots.json",
		KeyDir:            "keys",
		LogLevel:          "info",
		LogFile:           "holopass.log",
		RateLimitTokens:   20,
		RateLimitRefill:   5,
		RateLimitPeriodMs: 100,
		EnableAudit:       true,
		AuditLogPath:      "audit.log",
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ModulusBits < 16 || c.ModulusBits%2 != 0 {
		return fmt.Errorf("modulus_bits must be an even number of at least 16")
	}
	if c.Generator == "" {
		return fmt.Errorf("generator must be set")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain must be set")
	}
	if c.NumAgents <= 0 {
		return fmt.Errorf("num_agents must be positive")
	}
	if c.MaxDepth == 0 {
		return fmt.Errorf("max_depth must be at least 1")
	}
	if c.JitterMaxLoops <= c.JitterMinLoops {
		return fmt.Errorf("jitter_max_loops must exceed jitter_min_loops")
	}
	if c.RateLimitTokens <= 0 || c.RateLimitRefill <= 0 || c.RateLimitPeriodMs <= 0 {
		return fmt.Errorf("rate limit parameters must be positive")
	}
	return nil
}
