// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every setting the server reads at startup. Integrations
// with an empty key (Stripe, Resend, S3, AI providers) are disabled.
type Config struct {
	Host    string `env:"APP_HOST" env-default:"0.0.0.0"`
	Port    string `env:"APP_PORT" env-default:"8080"`
	Env     string `env:"APP_ENV" env-default:"development" env-description:"development, production or testing"`
	BaseURL string `env:"APP_BASE_URL" env-default:"http://localhost:8080" env-description:"public origin used in payment redirects and emails"`

	CompanyName  string `env:"COMPANY_NAME" env-default:"ITProBit"`
	CompanyPhone string `env:"COMPANY_PHONE"`

	DBHost     string `env:"POSTGRES_HOST" env-default:"localhost"`
	DBPort     string `env:"POSTGRES_PORT" env-default:"5432"`
	DBUser     string `env:"POSTGRES_USER" env-default:"probit"`
	DBPassword string `env:"POSTGRES_PASSWORD" env-default:"changeme"`
	DBName     string `env:"POSTGRES_DB" env-default:"probit"`

	ValkeyHost     string `env:"VALKEY_HOST" env-default:"localhost"`
	ValkeyPort     string `env:"VALKEY_PORT" env-default:"6379"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`

	SessionTTL time.Duration `env:"SESSION_TTL" env-default:"24h"`
	PageTTL    time.Duration `env:"PAGE_CACHE_TTL" env-default:"5m"`

	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`

	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	StripeBaseURL   string `env:"STRIPE_BASE_URL"`

	ResendAPIKey  string `env:"RESEND_API_KEY"`
	ResendBaseURL string `env:"RESEND_BASE_URL"`
	MailFrom      string `env:"MAIL_FROM" env-default:"onboarding@resend.dev"`
	AdminEmail    string `env:"ADMIN_EMAIL" env-description:"receives contact form notifications"`

	AIProvider     string `env:"AI_PROVIDER" env-default:"openai"`
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	OpenAIModel    string `env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL"`
	GeminiKey      string `env:"GEMINI_API_KEY"`
	GeminiModel    string `env:"GEMINI_MODEL" env-default:"gemini-2.5-flash"`
	GeminiBaseURL  string `env:"GEMINI_BASE_URL"`
	ClaudeKey      string `env:"CLAUDE_API_KEY"`
	ClaudeModel    string `env:"CLAUDE_MODEL" env-default:"claude-sonnet-4-5"`
	ClaudeBaseURL  string `env:"CLAUDE_BASE_URL"`
	MistralKey     string `env:"MISTRAL_API_KEY"`
	MistralModel   string `env:"MISTRAL_MODEL" env-default:"mistral-small-latest"`
	MistralBaseURL string `env:"MISTRAL_BASE_URL"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Region    string `env:"S3_REGION" env-default:"eu-central-1"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET" env-default:"probitcms-media"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
}

// Load reads the environment. Production refuses the development database
// password and a non-HTTPS base URL.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("config: APP_BASE_URL %q is not an absolute URL", cfg.BaseURL)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, errors.New("POSTGRES_PASSWORD must be set in production")
		}
		if u.Scheme != "https" {
			return nil, errors.New("APP_BASE_URL must use https in production")
		}
	}

	return &cfg, nil
}

// Usage returns the environment variable help text.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// ValkeyAddr returns the Valkey host:port.
func (c *Config) ValkeyAddr() string {
	return c.ValkeyHost + ":" + c.ValkeyPort
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}
