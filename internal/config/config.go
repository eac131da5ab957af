package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	ServiceName    = "inventory-sales"
	ServiceVersion = "0.1.0"
)

const (
	TracesPath    = "/v1/traces"
	LogsPath      = "/v1/logs"
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

const (
	defaultAddr     = ":8081"
	defaultLogLevel = "info"
)

// Config holds the runtime settings of the service.
type Config struct {
	Addr           string `yaml:"addr"`
	DatabaseURL    string `yaml:"database_url"`
	LogLevel       string `yaml:"log_level"`
	OtelEndpoint   string `yaml:"otel_endpoint"`
	OtelAuthHeader string `yaml:"otel_auth_header"`
}

// LoadConfig reads the YAML file named by SALES_CONFIG, if any, then applies
// environment overrides and defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("SALES_CONFIG"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	overrideFromEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses a YAML config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	for env, field := range map[string]*string{
		"SALES_ADDR":       &cfg.Addr,
		"DATABASE_URL":     &cfg.DatabaseURL,
		"LOG_LEVEL":        &cfg.LogLevel,
		"OTEL_ENDPOINT":    &cfg.OtelEndpoint,
		"OTEL_AUTH_HEADER": &cfg.OtelAuthHeader,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// TracingEnabled reports whether telemetry should be exported.
func (c *Config) TracingEnabled() bool { return c.OtelEndpoint != "" }
