package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CARPOOL_API_BASE_URL.
	EnvPrefix = "CARPOOL_"
	// PathEnvVar overrides the config file location.
	PathEnvVar = "CARPOOL_CONFIG"
)

// DefaultPaths lists the config files searched, first match wins.
var DefaultPaths = []string{
	"carpool.yaml",
	"carpool.yml",
}

type Config struct {
	API      APIConfig      `koanf:"api"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Storage  StorageConfig  `koanf:"storage"`
	Log      LogConfig      `koanf:"log"`
}

type APIConfig struct {
	BaseURL         string        `koanf:"base_url" validate:"required,url"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	RateLimit       float64       `koanf:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
	RateBurst       int           `koanf:"rate_burst" validate:"gte=1"`
	BreakerFailures uint32        `koanf:"breaker_failures"` // 0 disables the circuit breaker
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

type RealtimeConfig struct {
	URL               string        `koanf:"url" validate:"required,url"`
	MaxUpdates        int           `koanf:"max_updates" validate:"gte=0"`
	ReconnectAttempts uint64        `koanf:"reconnect_attempts"`
	ReconnectBase     time.Duration `koanf:"reconnect_base"`
	ReconnectMax      time.Duration `koanf:"reconnect_max"`
}

type StorageConfig struct {
	Path       string `koanf:"path" validate:"required"`
	Passphrase string `koanf:"passphrase"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the built-in configuration. File and environment layers
// are applied on top of it by Load.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:         "http://localhost:5000/api",
			Timeout:         10 * time.Second,
			RateLimit:       0,
			RateBurst:       10,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Realtime: RealtimeConfig{
			URL:               "ws://localhost:5000/ws",
			MaxUpdates:        500,
			ReconnectAttempts: 0,
			ReconnectBase:     time.Second,
			ReconnectMax:      30 * time.Second,
		},
		Storage: StorageConfig{
			Path: "carpool.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load layers defaults, the optional YAML file at path (or the first of
// DefaultPaths / $CARPOOL_CONFIG when path is empty), and CARPOOL_*
// environment variables, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sections are the top-level keys; the first underscore after one of them
// separates the section from the field name.
var sections = []string{"api", "realtime", "storage", "log"}

// envKey maps CARPOOL_API_BASE_URL to api.base_url. Unknown sections are
// passed through lower-cased so they are ignored on unmarshal.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	for _, s := range sections {
		if strings.HasPrefix(key, s+"_") {
			return s + "." + strings.TrimPrefix(key, s+"_")
		}
	}
	return key
}
