// Package config loads rift64's runtime settings from a TOML file, mirroring
// the nested-struct/DefaultConfig/LoadFrom shape the rest of the toolchain
// uses for its own configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config represents rift64's runtime configuration.
type Config struct {
	// JIT sizing (spec.md §6 jit_init).
	JIT struct {
		CodeCacheBytes       int `toml:"code_cache_bytes"`
		TranslationTableSize int `toml:"translation_table_size"`
		MaxBlockInstructions int `toml:"max_block_instructions"`
	} `toml:"jit"`

	// Execution settings.
	Execution struct {
		EnableChaining bool   `toml:"enable_chaining"`
		EnableStats    bool   `toml:"enable_stats"`
		StopSentinel   uint64 `toml:"stop_sentinel"`
	} `toml:"execution"`

	// Trace settings (core.Trace ring buffer).
	Trace struct {
		Enabled    bool `toml:"enabled"`
		MaxEntries int  `toml:"max_entries"`
	} `toml:"trace"`

	// Statistics settings.
	Statistics struct {
		OutputFile string `toml:"output_file"`
		Format     string `toml:"format"` // json, csv
	} `toml:"statistics"`
}

// DefaultConfig returns a configuration with the reference values spec.md
// names (16 MiB code cache, 4096-entry translation table, and
// MaxBlockInstructions 64). The core uses MaxBlockInstructions only to size
// each block's host code buffer; the number of guest instructions per block
// is bounded by the xlate package's own fixed limit of 512.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.JIT.CodeCacheBytes = 16 * 1024 * 1024
	cfg.JIT.TranslationTableSize = 4096
	cfg.JIT.MaxBlockInstructions = 64

	cfg.Execution.EnableChaining = true
	cfg.Execution.EnableStats = true
	cfg.Execution.StopSentinel = 0xFFFFFFFFFFFFFFFF

	cfg.Trace.Enabled = false
	cfg.Trace.MaxEntries = 10000

	cfg.Statistics.OutputFile = "stats.json"
	cfg.Statistics.Format = "json"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "rift64")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "rift64")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file. A missing file is
// not an error: the reference defaults are returned instead.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// SaveTo saves configuration to the specified file, creating parent
// directories as needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("config: failed to create directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- caller-provided config path
	if err != nil {
		return fmt.Errorf("config: failed to create file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: failed to encode: %w", err)
	}

	return nil
}
