// Package config loads service configuration from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "journal.yaml"

// Config is the full service configuration.
type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	LLM       LLMConfig       `yaml:"llm"`
	ImageHost ImageHostConfig `yaml:"image_host"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LLMConfig selects the language-model provider and bounds its calls.
type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	Timeout         time.Duration `yaml:"timeout"`
	Attempts        int           `yaml:"attempts"`
}

// APIKey returns the key for the configured provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	}
	return ""
}

type ImageHostConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool { return c.Env == "production" }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
			MaxBodyBytes:    50 << 20,
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "journal.db"},
		Log:      LogConfig{Level: "info"},
		LLM: LLMConfig{
			Provider: "gemini",
			Timeout:  30 * time.Second,
			Attempts: 3,
		},
		ImageHost: ImageHostConfig{
			BaseURL: "https://freeimage.host/api/1/upload",
			Timeout: 30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (a
// missing file is not an error) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Env, "JOURNAL_ENV")
	set(&c.Database.Driver, "JOURNAL_DB_DRIVER")
	set(&c.Database.DSN, "JOURNAL_DB_DSN")
	if v := getenv("DATABASE_URL"); v != "" {
		c.Database.Driver = "postgres"
		c.Database.DSN = v
	}
	set(&c.Auth.JWTSecret, "JWT_SECRET")
	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	set(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	set(&c.ImageHost.APIKey, "IMAGE_HOST_API_KEY")
	set(&c.Log.Level, "LOG_LEVEL")

	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	switch c.LLM.Provider {
	case "anthropic", "gemini", "none":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.LLM.Timeout <= 0 || c.ImageHost.Timeout <= 0 || c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.LLM.Attempts < 1 {
		return errors.New("llm attempts must be at least 1")
	}
	if c.Production() && c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required in production")
	}
	return nil
}
