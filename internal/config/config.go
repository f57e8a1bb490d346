package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigRelPath = ".clearsign/config.yaml"

	// DefaultRedactReplacement replaces credential values in logs.
	DefaultRedactReplacement = "***REDACTED***"
)

var (
	DefaultRedactQueryParams = []string{"apikey", "api_key"}
	DefaultRedactHeaders     = []string{"X-Api-Key", "Authorization"}
)

type LLMConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	// ContextWindow is the model token limit; prompts estimated above it
	// minus MaxTokens are logged with a warning.
	ContextWindow int           `yaml:"context_window"`
	Temperature   float64       `yaml:"temperature"`
	APIVersion    string        `yaml:"api_version"`
	Timeout       time.Duration `yaml:"timeout"`
}

type ExplorerConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	ChainID uint64        `yaml:"chain_id"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RedactConfig struct {
	QueryParams []string `yaml:"query_params"`
	Headers     []string `yaml:"headers"`
	Replacement string   `yaml:"replacement"`
}

type Config struct {
	EnvFile  string         `yaml:"env_file"`
	LLM      LLMConfig      `yaml:"llm"`
	Explorer ExplorerConfig `yaml:"explorer"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Redact   RedactConfig   `yaml:"redact"`
}

// Load loads YAML config, then the .env file, then applies env overrides.
// Missing credentials are not an error here; requests that need them fail.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configPath = filepath.Join(home, defaultConfigRelPath)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg.SetDefaults()

	// godotenv.Load never overrides variables already set in the environment.
	if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.EnvFile == "" {
		c.EnvFile = ".env"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.anthropic.com"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "claude-2"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 3000
	}
	if c.LLM.ContextWindow == 0 {
		c.LLM.ContextWindow = 100000
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.APIVersion == "" {
		c.LLM.APIVersion = "2023-06-01"
	}
	if c.Explorer.BaseURL == "" {
		c.Explorer.BaseURL = "https://api.etherscan.io/api"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if len(c.Redact.QueryParams) == 0 {
		c.Redact.QueryParams = append([]string(nil), DefaultRedactQueryParams...)
	}
	if len(c.Redact.Headers) == 0 {
		c.Redact.Headers = append([]string(nil), DefaultRedactHeaders...)
	}
	if c.Redact.Replacement == "" {
		c.Redact.Replacement = DefaultRedactReplacement
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if err := validateBaseURL("llm.base_url", c.LLM.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("explorer.base_url", c.Explorer.BaseURL); err != nil {
		return err
	}
	if c.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens cannot be negative")
	}
	if c.LLM.ContextWindow < 0 {
		return errors.New("llm.context_window cannot be negative")
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format %q", c.Log.Format)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log.level %q", s)
	}
}

func validateBaseURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	setString(&c.LLM.APIKey, "CLAUDE_API_KEY")
	setString(&c.Explorer.APIKey, "ETHERSCAN_API_KEY")
	setString(&c.LLM.BaseURL, "CLEARSIGN_LLM_BASE_URL")
	setString(&c.LLM.Model, "CLEARSIGN_LLM_MODEL")
	setInt(&c.LLM.MaxTokens, "CLEARSIGN_LLM_MAX_TOKENS")
	setInt(&c.LLM.ContextWindow, "CLEARSIGN_LLM_CONTEXT_WINDOW")
	setFloat(&c.LLM.Temperature, "CLEARSIGN_LLM_TEMPERATURE")
	setString(&c.Explorer.BaseURL, "CLEARSIGN_EXPLORER_BASE_URL")
	setUint(&c.Explorer.ChainID, "CLEARSIGN_EXPLORER_CHAIN_ID")
	setString(&c.Server.Host, "CLEARSIGN_SERVER_HOST")
	setInt(&c.Server.Port, "CLEARSIGN_SERVER_PORT")
	setString(&c.Log.Level, "CLEARSIGN_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint(dst *uint64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}
