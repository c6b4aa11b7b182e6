// Package config handles configuration loading from YAML files, an optional
// remote configuration service, environment variables, and CLI flags.
// Precedence: CLI flags > environment variables > remote service > config
// file > defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// MarshalJSON renders the duration as a string so the config endpoint
// round-trips "15s" rather than nanosecond integers.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Config holds all exporter configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Java       JavaConfig       `yaml:"java" json:"java"`
	Collection CollectionConfig `yaml:"collection" json:"collection"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`

	// SystemProcesses lists non-JVM executable names tracked by exact match
	// against the OS process table.
	SystemProcesses []string `yaml:"system_processes" json:"system_processes"`

	// ConfigurationServiceURL, when set, is fetched at startup and merged
	// over the local file. Remote scalars win; remote system process names
	// are unioned with the local set.
	ConfigurationServiceURL string `yaml:"configuration_service_url" json:"configuration_service_url"`
}

// ServerConfig holds the scrape endpoint listen settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// JavaConfig holds JDK tool resolution settings.
type JavaConfig struct {
	// Home is the JAVA_HOME used to resolve jps and jstat; empty means PATH.
	Home string `yaml:"home" json:"home"`
	// DisplayFullPath keeps the fully qualified main-class path as the
	// process name instead of reducing it to the last segment.
	DisplayFullPath bool `yaml:"display_full_path" json:"display_full_path"`
}

// CollectionConfig holds refresh cycle settings.
type CollectionConfig struct {
	Interval      Duration `yaml:"interval" json:"interval"`
	SampleTimeout Duration `yaml:"sample_timeout" json:"sample_timeout"`
	// MaxConcurrentSamples bounds in-flight jstat invocations per cycle so a
	// host with many JVMs is not fork-stormed.
	MaxConcurrentSamples int `yaml:"max_concurrent_samples" json:"max_concurrent_samples"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":29090",
		},
		Collection: CollectionConfig{
			Interval:             Duration{15 * time.Second},
			SampleTimeout:        Duration{5 * time.Second},
			MaxConcurrentSamples: 8,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Locate searches standard config file paths and returns the first one
// found. Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// CLIOverrides holds values from command-line flags. Zero values are treated
// as "not set" and skipped.
type CLIOverrides struct {
	JavaHome        string
	DisplayFullPath bool
	ListenAddr      string
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > remote configuration service > YAML file > defaults.
// A remote fetch failure is non-fatal; the local layers still apply.
func LoadLayered(path string, cli CLIOverrides) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if cfg.ConfigurationServiceURL != "" {
		remote, err := FetchRemote(cfg.ConfigurationServiceURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to fetch configuration from %s: %v\n", cfg.ConfigurationServiceURL, err)
		} else {
			MergeRemote(cfg, remote)
		}
	}

	applyEnvOverrides(cfg)
	applyCLIOverrides(cfg, cli)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if home := os.Getenv("JVM_EXPORTER_JAVA_HOME"); home != "" {
		cfg.Java.Home = home
	}
	if addr := os.Getenv("JVM_EXPORTER_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if level := os.Getenv("JVM_EXPORTER_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if iv := os.Getenv("JVM_EXPORTER_INTERVAL"); iv != "" {
		if parsed, err := time.ParseDuration(iv); err == nil {
			cfg.Collection.Interval = Duration{parsed}
		}
	}
	if names := os.Getenv("JVM_EXPORTER_SYSTEM_PROCESSES"); names != "" {
		cfg.SystemProcesses = splitNonEmpty(names)
	}
	if full := os.Getenv("JVM_EXPORTER_FULL_PATH"); full != "" {
		if parsed, err := strconv.ParseBool(full); err == nil {
			cfg.Java.DisplayFullPath = parsed
		}
	}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyCLIOverrides applies command-line flag overrides (highest priority).
func applyCLIOverrides(cfg *Config, cli CLIOverrides) {
	if cli.JavaHome != "" {
		cfg.Java.Home = cli.JavaHome
	}
	if cli.DisplayFullPath {
		cfg.Java.DisplayFullPath = true
	}
	if cli.ListenAddr != "" {
		cfg.Server.ListenAddr = cli.ListenAddr
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection interval must be positive")
	}
	if c.Collection.SampleTimeout.Duration <= 0 {
		return fmt.Errorf("sample timeout must be positive")
	}
	if c.Collection.MaxConcurrentSamples <= 0 {
		return fmt.Errorf("max concurrent samples must be positive")
	}
	return nil
}
