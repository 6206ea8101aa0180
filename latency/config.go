// Package latency provides the arithmetic unit's per-opcode cycle
// latency table, configurable from a JSON file so new opcodes can be
// tuned without recompiling. Grounded on the teacher's
// timing/latency/config.go Default/Load/Validate shape.
package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the cycle counts spec.md §4.4 assigns to each
// arithmetic opcode family.
type Config struct {
	// AddLatency is the cycle count for add/addi. Default: 1.
	AddLatency uint64 `json:"add_latency"`

	// MulLatency is the cycle count for mul/muli. Default: 3.
	MulLatency uint64 `json:"mul_latency"`
}

// DefaultConfig reproduces spec.md §4.4's opcode table exactly.
func DefaultConfig() *Config {
	return &Config{
		AddLatency: 1,
		MulLatency: 3,
	}
}

// LoadConfig reads a Config from a JSON file, starting from
// DefaultConfig and overlaying whatever fields the file sets.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("latency: failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("latency: failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as indented JSON.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("latency: failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("latency: failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that every latency is strictly positive; LoadConfig
// rejects a file that sets either latency to zero.
func (c *Config) Validate() error {
	if c.AddLatency == 0 {
		return fmt.Errorf("latency: add_latency must be > 0")
	}
	if c.MulLatency == 0 {
		return fmt.Errorf("latency: mul_latency must be > 0")
	}
	return nil
}
