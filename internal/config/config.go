// Package config reads runtime configuration from SST_* environment
// variables. Command-line flags bound with BindFlags take precedence.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "SST"

// Config holds runtime configuration for the server.
type Config struct {
	DB   string `envconfig:"DB" default:"sinalizacao.sqlite3"`
	Addr string `envconfig:"ADDR" default:":8080"`
	Log  string `envconfig:"LOG"`
	Seed string `envconfig:"SEED"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	GeminiAPIKey     string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel      string        `envconfig:"GEMINI_MODEL" default:"gemini-3-pro-preview"`
	GeminiEndpoint   string        `envconfig:"GEMINI_ENDPOINT" default:"https://generativelanguage.googleapis.com/"`
	AssistantTimeout time.Duration `envconfig:"ASSISTANT_TIMEOUT" default:"30s"`

	Credentials string `envconfig:"CREDENTIALS" default:"bcrypt"`
	LoginRate   int    `envconfig:"LOGIN_RATE" default:"10"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.Credentials {
	case "bcrypt", "plain":
	default:
		return fmt.Errorf("%s_CREDENTIALS must be bcrypt or plain, got %q", Prefix, c.Credentials)
	}
	if c.LoginRate <= 0 {
		return fmt.Errorf("%s_LOGIN_RATE must be positive, got %d", Prefix, c.LoginRate)
	}
	if c.AssistantTimeout <= 0 {
		return fmt.Errorf("%s_ASSISTANT_TIMEOUT must be positive, got %s", Prefix, c.AssistantTimeout)
	}
	return nil
}

// BindFlags registers the short and long form of each overridable setting
// on fs, defaulting to the current values.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DB, "db", c.DB, "")
	fs.StringVar(&c.DB, "d", c.DB, "")

	fs.StringVar(&c.Addr, "addr", c.Addr, "")
	fs.StringVar(&c.Addr, "a", c.Addr, "")

	fs.StringVar(&c.Log, "log", c.Log, "")
	fs.StringVar(&c.Log, "l", c.Log, "")

	fs.StringVar(&c.Seed, "seed", c.Seed, "")
	fs.StringVar(&c.Seed, "s", c.Seed, "")
}
