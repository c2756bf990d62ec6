// Package config loads layout service settings from, in increasing order of
// precedence: built-in defaults, a YAML file named by LAYOUT_CONFIG, and
// LAYOUT_* environment variables (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the YAML config file.
const ConfigFileEnv = "LAYOUT_CONFIG"

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Audit     AuditConfig     `yaml:"audit"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host" env:"LAYOUT_HTTP_HOST"`
	Port int    `yaml:"port" env:"LAYOUT_HTTP_PORT,strict"`
}

// Addr is the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig mirrors logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LAYOUT_LOG_LEVEL"`
	Format     string `yaml:"format" env:"LAYOUT_LOG_FORMAT"`
	Output     string `yaml:"output" env:"LAYOUT_LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LAYOUT_LOG_FILE_PREFIX"`
}

// RateLimitConfig is the per-client token bucket. RequestsPerSecond 0
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"LAYOUT_RATE_LIMIT_RPS,strict"`
	Burst             int `yaml:"burst" env:"LAYOUT_RATE_LIMIT_BURST,strict"`
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	AllowedOrigins OriginList `yaml:"allowed_origins" env:"LAYOUT_CORS_ORIGINS"`
}

// AuditConfig controls the mutation audit log.
type AuditConfig struct {
	File string `yaml:"file" env:"LAYOUT_AUDIT_FILE"`
	Size int    `yaml:"size" env:"LAYOUT_AUDIT_SIZE,strict"`
}

// OriginList is a comma separated list when read from the environment.
type OriginList []string

// Decode implements envdecode.Decoder.
func (o *OriginList) Decode(value string) error {
	var out OriginList
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*o = out
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8000},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "layoutd",
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 50, Burst: 100},
		CORS:      CORSConfig{AllowedOrigins: OriginList{"*"}},
		Audit:     AuditConfig{Size: 200},
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
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

// LoadFile reads a YAML file over the defaults, then applies the
// environment. Used by tests and by callers that pass a path explicitly.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return svcerrors.IOFailure(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return svcerrors.WrapMalformed(err, "parse config %s", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return svcerrors.WrapMalformed(err, "decode environment")
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return svcerrors.MalformedInput("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return svcerrors.MalformedInput("server host is required")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return svcerrors.MalformedInput("rate limit values cannot be negative")
	}
	if c.Audit.Size < 0 {
		return svcerrors.MalformedInput("audit size cannot be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return svcerrors.MalformedInput("unsupported log format %q", c.Logging.Format)
	}
	return nil
}
