package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. Values are layered: defaults, then
// the optional YAML file, then environment variables.
type Config struct {
	// DatabaseURL selects Postgres storage; empty runs on in-memory stores
	DatabaseURL     string        `yaml:"database_url"`
	Port            string        `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// SeedFile is a YAML group definition file loaded into the first organization at startup
	SeedFile string `yaml:"seed_file"`

	Cache      CacheConfig      `yaml:"cache"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CacheConfig selects and sizes the group cache
type CacheConfig struct {
	// Backend is "memory" or "ristretto"
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int64         `yaml:"max_entries"`
}

// EvaluationConfig controls condition evaluation
type EvaluationConfig struct {
	CELCostLimit uint64 `yaml:"cel_cost_limit"`
	// FailurePolicy is "propagate" or "unmatched"
	FailurePolicy string `yaml:"failure_policy"`
}

// MetricsConfig controls the Prometheus collector
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:            "8080",
		LogLevel:        "INFO",
		ShutdownTimeout: 30 * time.Second,
		Cache: CacheConfig{
			Backend:    "memory",
			MaxEntries: 10000,
		},
		Evaluation: EvaluationConfig{
			CELCostLimit:  1000000,
			FailurePolicy: "propagate",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "conditions",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty) and the environment, then validates it
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.SeedFile, "SEED_FILE")
	setString(&c.Cache.Backend, "CACHE_BACKEND")
	setString(&c.Evaluation.FailurePolicy, "CONDITION_FAILURE_POLICY")
	setString(&c.Metrics.Namespace, "METRICS_NAMESPACE")

	if err := setDuration(&c.ShutdownTimeout, "SHUTDOWN_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Cache.TTL, "CACHE_TTL"); err != nil {
		return err
	}
	if raw := os.Getenv("CACHE_MAX_ENTRIES"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CACHE_MAX_ENTRIES %q: %w", raw, err)
		}
		c.Cache.MaxEntries = v
	}
	if raw := os.Getenv("CEL_COST_LIMIT"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CEL_COST_LIMIT %q: %w", raw, err)
		}
		c.Evaluation.CELCostLimit = v
	}
	if raw := os.Getenv("METRICS_ENABLED"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", raw, err)
		}
		c.Metrics.Enabled = v
	}
	return nil
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", c.Port)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case "memory", "ristretto":
	default:
		return fmt.Errorf("unknown cache backend %q (use: memory, ristretto)", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries cannot be negative")
	}

	switch c.Evaluation.FailurePolicy {
	case "propagate", "unmatched":
	default:
		return fmt.Errorf("unknown failure policy %q (use: propagate, unmatched)", c.Evaluation.FailurePolicy)
	}
	if c.Evaluation.CELCostLimit == 0 {
		return fmt.Errorf("cel_cost_limit must be positive")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}
