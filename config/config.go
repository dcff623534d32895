// Package config provides loading and parsing of warden.yaml configuration files.
// Warden configurations define validation policy, worker runtime settings, and
// the Redis and registry connections a deployment uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/warden/queue"
	"github.com/zero-day-ai/warden/registry"
	"github.com/zero-day-ai/warden/validate"
)

// Config represents a warden.yaml configuration file.
// Every section is optional; getters fall back to defaults, so an empty file
// and a missing file behave the same.
type Config struct {
	// Validation controls matching policy (depth limit, integer strictness,
	// missing-field handling).
	Validation *ValidationConfig `yaml:"validation,omitempty"`

	// Worker configures the validation worker runtime.
	Worker *WorkerConfig `yaml:"worker,omitempty"`

	// Redis configures the job queue connection.
	Redis *RedisConfig `yaml:"redis,omitempty"`

	// Registry configures the etcd schema registry connection.
	Registry *RegistryConfig `yaml:"registry,omitempty"`
}

// ValidationConfig holds matching policy for the validator.
type ValidationConfig struct {
	// MaxDepth bounds schema/document recursion.
	// Default: 256
	MaxDepth int `yaml:"max_depth,omitempty"`

	// StrictIntegers rejects fractional-typed numbers such as 2.0 against
	// Integer nodes. The default accepts them when the fraction is zero.
	StrictIntegers bool `yaml:"strict_integers,omitempty"`

	// AllowMissingFields permits declared object fields to be absent from
	// documents instead of recording missing_field violations.
	AllowMissingFields bool `yaml:"allow_missing_fields,omitempty"`
}

// GetMaxDepth returns the configured depth limit or the default value.
func (v *ValidationConfig) GetMaxDepth() int {
	if v == nil || v.MaxDepth <= 0 {
		return validate.DefaultMaxDepth
	}
	return v.MaxDepth
}

// Options converts the section into validator options.
func (v *ValidationConfig) Options() []validate.Option {
	opts := []validate.Option{validate.WithMaxDepth(v.GetMaxDepth())}
	if v == nil {
		return opts
	}
	if v.StrictIntegers {
		opts = append(opts, validate.WithStrictIntegers())
	}
	if v.AllowMissingFields {
		opts = append(opts, validate.WithAllowMissingFields())
	}
	return opts
}

// WorkerConfig defines configuration for the queue-consuming validation worker.
type WorkerConfig struct {
	// Concurrency is the number of concurrent validation goroutines.
	// Validation is CPU-bound, so values near the core count work well.
	// Default: 4
	Concurrency int `yaml:"concurrency,omitempty"`

	// ShutdownTimeout is the time to wait for graceful shutdown.
	// Format: Go duration string (e.g., "30s", "1m")
	// Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`

	// HeartbeatInterval is the interval between health heartbeats.
	// Format: Go duration string (e.g., "10s")
	// Default: 10s
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty"`

	// Queue is the Redis list the worker consumes jobs from.
	// Default: "warden:jobs"
	Queue string `yaml:"queue,omitempty"`

	// AdminPort is the TCP port for the worker's gRPC health endpoint.
	// Default: 0 (endpoint disabled)
	AdminPort int `yaml:"admin_port,omitempty"`
}

// GetConcurrency returns the configured concurrency or the default value.
func (w *WorkerConfig) GetConcurrency() int {
	if w == nil || w.Concurrency <= 0 {
		return 4
	}
	return w.Concurrency
}

// GetShutdownTimeout parses the shutdown timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetShutdownTimeout() time.Duration {
	if w == nil || w.ShutdownTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(w.ShutdownTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetHeartbeatInterval parses the heartbeat interval string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetHeartbeatInterval() time.Duration {
	if w == nil || w.HeartbeatInterval == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(w.HeartbeatInterval)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetQueue returns the configured queue name or the default value.
func (w *WorkerConfig) GetQueue() string {
	if w == nil || w.Queue == "" {
		return queue.DefaultQueue
	}
	return w.Queue
}

// GetAdminPort returns the admin port, or zero when the endpoint is disabled.
func (w *WorkerConfig) GetAdminPort() int {
	if w == nil || w.AdminPort <= 0 {
		return 0
	}
	return w.AdminPort
}

// RedisConfig defines the job queue connection.
type RedisConfig struct {
	// URL is the Redis connection string.
	// Default: "redis://localhost:6379"
	URL string `yaml:"url,omitempty"`
}

// GetURL returns the configured Redis URL or the default value.
func (r *RedisConfig) GetURL() string {
	if r == nil || r.URL == "" {
		return "redis://localhost:6379"
	}
	return r.URL
}

// RegistryConfig defines the etcd schema registry connection.
type RegistryConfig struct {
	// Endpoints is the list of etcd endpoints ("host:port"). An empty list
	// means no registry is configured.
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Namespace is the etcd key prefix for warden entries.
	// Default: "warden"
	Namespace string `yaml:"namespace,omitempty"`

	// TTL is the worker lease time-to-live in seconds.
	// Default: 30
	TTL int `yaml:"ttl,omitempty"`
}

// GetNamespace returns the configured namespace or the default value.
func (r *RegistryConfig) GetNamespace() string {
	if r == nil || r.Namespace == "" {
		return "warden"
	}
	return r.Namespace
}

// GetTTL returns the configured lease TTL or the default value.
func (r *RegistryConfig) GetTTL() int {
	if r == nil || r.TTL <= 0 {
		return 30
	}
	return r.TTL
}

// ClientConfig converts the section into a registry client configuration.
func (r *RegistryConfig) ClientConfig() registry.Config {
	var endpoints []string
	if r != nil {
		endpoints = r.Endpoints
	}
	return registry.Config{
		Endpoints: endpoints,
		Namespace: r.GetNamespace(),
		TTL:       r.GetTTL(),
	}
}

// Load reads and parses a warden.yaml file from the given path.
// If the path is a directory, it looks for warden.yaml or warden.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	var configPath string
	if info.IsDir() {
		// Try warden.yaml first, then warden.yml
		yamlPath := filepath.Join(path, "warden.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "warden.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no warden.yaml or warden.yml found in %s", path)
			}
		}
	} else {
		configPath = path
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadFromDir searches for warden.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}

		// Move to parent directory
		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			return nil, fmt.Errorf("no warden.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads warden.yaml from the current working directory.
func LoadFromCurrentDir() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}
