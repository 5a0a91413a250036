// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable Load reads.
const EnvironmentVariable = "WORKSPACESYNC_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local use.
	Development Environment = "development"
	// Production is for long-running hosts.
	Production Environment = "production"
)

// Config is the top-level configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Storage       StorageConfig       `yaml:"storage"`
	Serialization SerializationConfig `yaml:"serialization"`
	Sync          SyncConfig          `yaml:"sync"`
	Scopes        ScopesConfig        `yaml:"scopes"`
	Log           LogConfig           `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the fields an environment section may replace.
type Overrides struct {
	Storage *StorageConfig `yaml:"storage,omitempty"`
	Scopes  *ScopesConfig  `yaml:"scopes,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// StorageConfig configures temporary storage for metadata images.
type StorageConfig struct {
	// Directory holds memory-mapped storage files.
	Directory string `yaml:"directory"`

	// MemoryMapped selects the mmap-backed provider. When false,
	// images live on the heap and are always sent in full.
	MemoryMapped bool `yaml:"memory_mapped"`
}

// SerializationConfig configures reference serialization.
type SerializationConfig struct {
	// Compression is auto, none, lz4 or zstd. Applies to metadata
	// images sent in full.
	Compression string `yaml:"compression"`

	// CompressionThreshold is the image size in bytes below which
	// images are sent uncompressed.
	CompressionThreshold int64 `yaml:"compression_threshold"`
}

// SyncConfig configures the asset synchronization socket.
type SyncConfig struct {
	SocketPath string `yaml:"socket_path"`

	// BatchSize bounds the checksums requested per round trip.
	BatchSize int `yaml:"batch_size"`
}

// ScopesConfig configures scope accounting.
type ScopesConfig struct {
	// LeakThreshold is how long a scope may stay open before the
	// periodic sweep reports it. Parsed with time.ParseDuration.
	LeakThreshold string `yaml:"leak_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
}

// Default returns the configuration used as the base before a file is
// merged over it.
func Default() *Config {
	return &Config{
		Environment: Development,
		Storage: StorageConfig{
			Directory:    "${XDG_RUNTIME_DIR:-/tmp}/workspacesync",
			MemoryMapped: true,
		},
		Serialization: SerializationConfig{
			Compression:          "auto",
			CompressionThreshold: 4096,
		},
		Sync: SyncConfig{
			SocketPath: "${XDG_RUNTIME_DIR:-/tmp}/workspacesync.sock",
			BatchSize:  256,
		},
		Scopes: ScopesConfig{
			LeakThreshold: "10m",
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// Load loads configuration from the file named by
// WORKSPACESYNC_CONFIG. It fails if the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your workspacesync.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// Resolve returns Default with environment overrides applied and
// variables expanded, for running without a configuration file.
func Resolve() *Config {
	cfg := Default()
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg
}

// LoadFile loads configuration from path, merged over Default, with
// environment overrides applied and variables expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{
				Scopes: &ScopesConfig{LeakThreshold: "2m"},
				Log:    &LogConfig{Level: "info"},
			}
		}
	}
	if overrides == nil {
		return
	}

	if overrides.Storage != nil {
		if overrides.Storage.Directory != "" {
			c.Storage.Directory = overrides.Storage.Directory
		}
		c.Storage.MemoryMapped = overrides.Storage.MemoryMapped
	}
	if overrides.Scopes != nil && overrides.Scopes.LeakThreshold != "" {
		c.Scopes.LeakThreshold = overrides.Scopes.LeakThreshold
	}
	if overrides.Log != nil && overrides.Log.Level != "" {
		c.Log.Level = overrides.Log.Level
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Storage.Directory = expandVars(c.Storage.Directory, vars)
	vars["WORKSPACESYNC_ROOT"] = c.Storage.Directory
	c.Sync.SocketPath = expandVars(c.Sync.SocketPath, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, consulting vars
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Storage.MemoryMapped && c.Storage.Directory == "" {
		errs = append(errs, errors.New("storage.directory is required when storage.memory_mapped is set"))
	}
	compressions := []string{"auto", "none", "lz4", "zstd"}
	if !slices.Contains(compressions, c.Serialization.Compression) {
		errs = append(errs, fmt.Errorf("serialization.compression must be one of: %v", compressions))
	}
	if c.Serialization.CompressionThreshold < 0 {
		errs = append(errs, errors.New("serialization.compression_threshold must not be negative"))
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, errors.New("sync.batch_size must be positive"))
	}
	if _, err := c.LeakThreshold(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LeakThreshold parses Scopes.LeakThreshold.
func (c *Config) LeakThreshold() (time.Duration, error) {
	threshold, err := time.ParseDuration(c.Scopes.LeakThreshold)
	if err != nil {
		return 0, fmt.Errorf("scopes.leak_threshold: %w", err)
	}
	if threshold <= 0 {
		return 0, fmt.Errorf("scopes.leak_threshold must be positive, got %s", threshold)
	}
	return threshold, nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsureStorageDirectory creates Storage.Directory if the mmap
// provider is in use.
func (c *Config) EnsureStorageDirectory() error {
	if !c.Storage.MemoryMapped {
		return nil
	}
	if err := os.MkdirAll(filepath.Clean(c.Storage.Directory), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Storage.Directory, err)
	}
	return nil
}
