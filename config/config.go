// Package config loads server configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Consistency modes for mutating restaurant operations.
const (
	ConsistencyOptimistic    = "optimistic"
	ConsistencyLastWriteWins = "last-write-wins"
)

type Config struct {
	Server      Server      `yaml:"server"`
	Log         Log         `yaml:"log"`
	Store       Store       `yaml:"store"`
	Consistency Consistency `yaml:"consistency"`
	Geocode     Geocode     `yaml:"geocode"`
	Metrics     Metrics     `yaml:"metrics"`
}

type Server struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins  []string      `yaml:"allowed_origins" validate:"min=1"`
	StaticDir       string        `yaml:"static_dir"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Store selects and configures the key-value backend.
//
// Supported backends:
//
//	"json"     - one JSON file per key in DataDir (default)
//	"sqlite"   - SQLite database at DataDir/restaurants.db
//	"bolt"     - bbolt database at DataDir/restaurants.bolt
//	"dynamodb" - DynamoDB table TableName
//	"memory"   - in-memory (ephemeral, for testing)
type Store struct {
	Backend   string `yaml:"backend" validate:"oneof=json sqlite bolt dynamodb memory"`
	DataDir   string `yaml:"data_dir"`
	Key       string `yaml:"key" validate:"required"`
	TableName string `yaml:"table_name" validate:"required_if=Backend dynamodb"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
}

// CheckServerless reports an error for backends that keep data on the local
// filesystem, which is read-only and per-instance in serverless runtimes.
func (s Store) CheckServerless() error {
	switch s.Backend {
	case "dynamodb", "memory":
		return nil
	}
	return fmt.Errorf("store backend %q needs a writable persistent filesystem; use dynamodb (or memory for testing) when running serverless", s.Backend)
}

type Consistency struct {
	Mode       string `yaml:"mode" validate:"oneof=optimistic last-write-wins"`
	MaxRetries int    `yaml:"max_retries" validate:"min=0,max=100"`
}

type Geocode struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: Log{Level: "info", Format: "json"},
		Store: Store{
			Backend: "json",
			DataDir: "./data",
			Key:     "restaurants",
			Region:  "us-east-1",
		},
		Consistency: Consistency{Mode: ConsistencyOptimistic, MaxRetries: 5},
		Geocode: Geocode{
			BaseURL: "https://maps.googleapis.com",
			Timeout: 10 * time.Second,
		},
		Metrics: Metrics{Enabled: true, Path: "/metrics"},
	}
}

// Load builds the configuration. path may be empty, in which case CONFIG_FILE
// is consulted; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Host = env("HOST", c.Server.Host)
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	c.Server.StaticDir = env("STATIC_DIR", c.Server.StaticDir)

	c.Log.Level = strings.ToLower(env("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(env("LOG_FORMAT", c.Log.Format))

	c.Store.Backend = env("STORE_BACKEND", c.Store.Backend)
	c.Store.DataDir = env("DATA_DIR", c.Store.DataDir)
	c.Store.Key = env("STORE_KEY", c.Store.Key)
	c.Store.TableName = env("DYNAMODB_TABLE", c.Store.TableName)
	c.Store.Region = env("AWS_REGION", c.Store.Region)
	c.Store.Endpoint = env("DYNAMODB_ENDPOINT", c.Store.Endpoint)

	c.Consistency.Mode = env("CONSISTENCY_MODE", c.Consistency.Mode)
	if v := os.Getenv("CONSISTENCY_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CONSISTENCY_MAX_RETRIES %q: %w", v, err)
		}
		c.Consistency.MaxRetries = n
	}

	c.Geocode.APIKey = env("GOOGLE_MAPS_API_KEY", c.Geocode.APIKey)
	c.Geocode.BaseURL = env("GEOCODE_BASE_URL", c.Geocode.BaseURL)
	if v := os.Getenv("GEOCODE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GEOCODE_TIMEOUT %q: %w", v, err)
		}
		c.Geocode.Timeout = d
	}

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		c.Metrics.Enabled = b
	}
	return nil
}

// Validate checks the struct tags on the whole tree.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
