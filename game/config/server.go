package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the settings of the serve and mcp commands
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	LevelDir        string        `yaml:"level_dir"`
	DefaultLevel    string        `yaml:"default_level"`
	SessionsDir     string        `yaml:"sessions_dir"`
	DatabaseURL     string        `yaml:"database_url"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	TickRate        float64       `yaml:"tick_rate"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Ngrok           NgrokConfig   `yaml:"ngrok"`
}

// NgrokConfig configures the optional public tunnel
type NgrokConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"auth_token"`
	Domain    string `yaml:"domain"`
}

// DefaultServerConfig returns the settings used when no file is given
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "localhost",
		Port:            8080,
		LevelDir:        "levels",
		DefaultLevel:    DefaultLevelName,
		SessionsDir:     "sessions",
		LogLevel:        "info",
		LogFormat:       "text",
		TickRate:        30,
		SessionTTL:      24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// LoadServerConfig reads path over the defaults. A missing file yields the
// defaults; environment overrides are applied either way.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read server config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse server config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from LIBREGNUM_* and the conventional
// DATABASE_URL and NGROK_* variables
func (c *ServerConfig) applyEnv() error {
	if v := os.Getenv("LIBREGNUM_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("LIBREGNUM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LIBREGNUM_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("LIBREGNUM_LEVEL_DIR"); v != "" {
		c.LevelDir = v
	}
	if v := os.Getenv("LIBREGNUM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("NGROK_ENABLED"); v == "true" || v == "1" {
		c.Ngrok.Enabled = true
	}
	if v := os.Getenv("NGROK_AUTHTOKEN"); v != "" {
		c.Ngrok.AuthToken = v
	}
	if v := os.Getenv("NGROK_DOMAIN"); v != "" {
		c.Ngrok.Domain = v
	}
	return nil
}

// Validate checks ranges that would otherwise fail at startup
func (c ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}
	if c.TickRate < 0 || c.TickRate > 240 {
		return fmt.Errorf("tick_rate must be between 0 and 240, got %v", c.TickRate)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Addr returns host:port for the HTTP listener
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TickInterval is the period of the background ticker, or zero when ticking
// is disabled
func (c ServerConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.TickRate)
}
