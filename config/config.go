// Package config provides configuration management for the application.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. A .env file in the working directory is loaded into
// the environment first without overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no path is given and MULTICHAT_CONFIG is unset.
// A missing default file is not an error.
const DefaultConfigPath = "config.yaml"

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Client  ClientConfig  `yaml:"client"`
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string `yaml:"port"`
	BodySizeLimit string `yaml:"body_size_limit"` // echo size syntax, e.g. "1M" or "512K"
	StaticDir     string `yaml:"static_dir"`
}

// BackendConfig points at the model backend the chat proxy forwards to.
type BackendConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	ModelsTimeout time.Duration `yaml:"models_timeout"`
}

// ClientConfig configures the controller's outbound call.
type ClientConfig struct {
	Endpoint     string `yaml:"endpoint"`
	RequestOrder bool   `yaml:"request_order"` // re-key outcomes into request order
}

// CacheConfig selects where the model catalog is cached.
type CacheConfig struct {
	Type      string        `yaml:"type"` // "local" or "redis"
	LocalPath string        `yaml:"local_path"`
	RedisURL  string        `yaml:"redis_url"`
	TTL       time.Duration `yaml:"ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8000",
			BodySizeLimit: "1M",
			StaticDir:     "./web/static",
		},
		Backend: BackendConfig{
			URL:           "http://localhost:8001/api",
			Timeout:       60 * time.Second,
			ModelsTimeout: 10 * time.Second,
		},
		Client: ClientConfig{
			Endpoint: "http://localhost:8000/chat/",
		},
		Cache: CacheConfig{
			Type:      "local",
			LocalPath: ".cache/models.json",
			TTL:       5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load reads configuration from the YAML file at path (or MULTICHAT_CONFIG,
// or DefaultConfigPath) and the environment. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is fine

	explicit := path != ""
	if !explicit {
		path = os.Getenv("MULTICHAT_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigPath
	}

	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if u, err := url.Parse(c.Backend.URL); err != nil || !u.IsAbs() {
		return fmt.Errorf("backend.url must be an absolute URL, got %q", c.Backend.URL)
	}
	if u, err := url.Parse(c.Client.Endpoint); err != nil || !u.IsAbs() {
		return fmt.Errorf("client.endpoint must be an absolute URL, got %q", c.Client.Endpoint)
	}
	switch c.Cache.Type {
	case "local":
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required when cache.type is redis")
		}
	default:
		return fmt.Errorf("unknown cache.type %q (want local or redis)", c.Cache.Type)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q (want text or json)", c.Logging.Format)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.BodySizeLimit, "BODY_SIZE_LIMIT")
	setString(&cfg.Server.StaticDir, "STATIC_DIR")
	setString(&cfg.Backend.URL, "BACKEND_API_URL")
	setString(&cfg.Client.Endpoint, "CHAT_ENDPOINT")
	setString(&cfg.Cache.Type, "CACHE_TYPE")
	setString(&cfg.Cache.LocalPath, "CACHE_LOCAL_PATH")
	setString(&cfg.Cache.RedisURL, "REDIS_URL")
	setString(&cfg.Metrics.Endpoint, "METRICS_ENDPOINT")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	return errors.Join(
		setDuration(&cfg.Backend.Timeout, "BACKEND_TIMEOUT"),
		setDuration(&cfg.Backend.ModelsTimeout, "BACKEND_MODELS_TIMEOUT"),
		setDuration(&cfg.Cache.TTL, "CACHE_TTL"),
		setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED"),
		setBool(&cfg.Client.RequestOrder, "CLIENT_REQUEST_ORDER"),
	)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// setDuration accepts plain integers (seconds) or Go duration strings.
func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

// expandString replaces ${VAR} and ${VAR:-default} with environment values.
func expandString(s string) string {
	return os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
}
