package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type AIConfig struct {
	OpenAIKey    string `yaml:"openai_key"`
	GeminiKey    string `yaml:"gemini_key"`
	GeminiURL    string `yaml:"gemini_url"`
	DefaultModel string `yaml:"default_model"`
	MaxTokens    int    `yaml:"max_tokens"` // prompt budget per generation call
}

type JobsConfig struct {
	Workers           int           `yaml:"workers"`
	QueueSize         int           `yaml:"queue_size"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	ContextWindow     int           `yaml:"context_window"`  // messages per job context
	ContextCharBudget int           `yaml:"context_budget"`  // chars kept per message
	SubmitRateLimit   int           `yaml:"submit_rate"`     // submissions per user per window
	SubmitRateWindow  time.Duration `yaml:"submit_window"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	AI       AIConfig       `yaml:"ai"`
	Jobs     JobsConfig     `yaml:"jobs"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.AI.DefaultModel == "" {
		c.AI.DefaultModel = "gpt-4o-mini"
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 8000
	}
	if c.Jobs.Workers == 0 {
		c.Jobs.Workers = 4
	}
	if c.Jobs.QueueSize == 0 {
		c.Jobs.QueueSize = c.Jobs.Workers * 4
	}
	if c.Jobs.GenerationTimeout == 0 {
		c.Jobs.GenerationTimeout = 5 * time.Minute
	}
	if c.Jobs.ContextWindow == 0 {
		c.Jobs.ContextWindow = 8
	}
	if c.Jobs.ContextCharBudget == 0 {
		c.Jobs.ContextCharBudget = 500
	}
	if c.Jobs.SubmitRateWindow == 0 {
		c.Jobs.SubmitRateWindow = time.Minute
	}
}

func (c *Config) validate() error {
	if !c.Runtime.Dev && c.Database.URL == "" {
		return errors.New("database.url is required outside dev mode")
	}
	if !c.Runtime.Dev && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required outside dev mode")
	}
	return nil
}
