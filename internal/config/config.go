package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything sift needs to reach a Meilisearch server.
type Config struct {
	Endpoint       string        `validate:"required"`
	APIKey         string        `validate:"-"`
	RequestTimeout time.Duration `validate:"gt=0"`
	RequestIDs     bool
	PollInterval   time.Duration `validate:"gt=0"`
	PollAttempts   int           `validate:"gte=1"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
	LogEncoding    string        `validate:"oneof=console json"`
	MetricsAddr    string        `validate:"omitempty,hostname_port"`
}

// Env is the environment fallback, read with the MEILISEARCH prefix.
type Env struct {
	APIKey   string `envconfig:"API_KEY"`
	Endpoint string `envconfig:"ENDPOINT"`
}

const (
	defaultConfigPath     = "~/.config/sift/config.toml"
	defaultEndpoint       = "127.0.0.1:7700"
	defaultRequestTimeout = 10 * time.Second
	defaultPollInterval   = 5 * time.Second
	defaultPollAttempts   = 10
	defaultLogLevel       = "warn"
	defaultLogEncoding    = "console"
	envPrefix             = "meilisearch"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		Endpoint:       defaultEndpoint,
		RequestTimeout: defaultRequestTimeout,
		PollInterval:   defaultPollInterval,
		PollAttempts:   defaultPollAttempts,
		LogLevel:       defaultLogLevel,
		LogEncoding:    defaultLogEncoding,
	}
}

// Load locates and parses the sift config, falling back to defaults when
// missing. MEILISEARCH_API_KEY and MEILISEARCH_ENDPOINT fill values the file
// leaves empty.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw struct {
		Endpoint       string `toml:"endpoint"`
		APIKey         string `toml:"api_key"`
		RequestTimeout string `toml:"request_timeout"`
		RequestIDs     bool   `toml:"request_ids"`
		PollInterval   string `toml:"poll_interval"`
		PollAttempts   int    `toml:"poll_attempts"`
		LogLevel       string `toml:"log_level"`
		LogEncoding    string `toml:"log_encoding"`
		MetricsAddr    string `toml:"metrics_addr"`
	}

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var env Env
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	cfg := Defaults()
	cfg.Endpoint = firstNonEmpty(raw.Endpoint, env.Endpoint, defaultEndpoint)
	cfg.APIKey = firstNonEmpty(raw.APIKey, env.APIKey)
	cfg.RequestIDs = raw.RequestIDs
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	if raw.PollAttempts != 0 {
		cfg.PollAttempts = raw.PollAttempts
	}
	if level := strings.TrimSpace(raw.LogLevel); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if encoding := strings.TrimSpace(raw.LogEncoding); encoding != "" {
		cfg.LogEncoding = strings.ToLower(encoding)
	}
	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = parseDuration("poll_interval", raw.PollInterval, defaultPollInterval); err != nil {
		return Config{}, err
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", key, err)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
