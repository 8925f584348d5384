package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`

	DB struct {
		Host         string        `mapstructure:"POSTGRES_HOST"`
		Port         string        `mapstructure:"POSTGRES_PORT"`
		User         string        `mapstructure:"POSTGRES_USER"`
		Password     string        `mapstructure:"POSTGRES_PASSWORD"`
		Name         string        `mapstructure:"POSTGRES_DB"`
		MaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
		MaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
		MaxIdleTime  time.Duration `mapstructure:"DB_MAX_IDLE_TIME"`
	} `mapstructure:",squash"`

	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	Session struct {
		Store        string        `mapstructure:"SESSION_STORE"`
		TTL          time.Duration `mapstructure:"SESSION_TTL"`
		CookieSecure bool          `mapstructure:"COOKIE_SECURE"`
	} `mapstructure:",squash"`

	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	Mail struct {
		Host             string `mapstructure:"MAIL_HOST"`
		Port             int    `mapstructure:"MAIL_PORT"`
		User             string `mapstructure:"MAIL_USER"`
		Password         string `mapstructure:"MAIL_PASSWORD"`
		Sender           string `mapstructure:"MAIL_SENDER"`
		ContactRecipient string `mapstructure:"CONTACT_RECIPIENT"`
	} `mapstructure:",squash"`

	RabbitMQ struct {
		Host     string `mapstructure:"RABBITMQ_HOST"`
		Port     string `mapstructure:"RABBITMQ_PORT"`
		User     string `mapstructure:"RABBITMQ_USER"`
		Password string `mapstructure:"RABBITMQ_PASSWORD"`
	} `mapstructure:",squash"`

	RateLimit struct {
		RPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
		Burst int     `mapstructure:"RATE_LIMIT_BURST"`
	} `mapstructure:",squash"`

	// TrustProxy takes the client address from X-Forwarded-For and X-Real-IP. Enable it only
	// behind a proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"TRUST_PROXY"`

	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`
}

var defaults = map[string]any{
	"PORT":              ":8080",
	"ENVIRONMENT":       "development",
	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_USER":     "",
	"POSTGRES_PASSWORD": "",
	"POSTGRES_DB":       "quill",
	"DB_MAX_OPEN_CONNS": 25,
	"DB_MAX_IDLE_CONNS": 25,
	"DB_MAX_IDLE_TIME":  "15m",
	"MIGRATIONS_PATH":   "file://migrations",
	"SESSION_STORE":     "postgres",
	"SESSION_TTL":       "168h",
	"COOKIE_SECURE":     false,
	"CACHE_TTL":         "5m",
	"MAIL_HOST":         "localhost",
	"MAIL_PORT":         1025,
	"MAIL_USER":         "",
	"MAIL_PASSWORD":     "",
	"MAIL_SENDER":       "Quill <no-reply@quill.local>",
	"CONTACT_RECIPIENT": "",
	"RABBITMQ_HOST":     "localhost",
	"RABBITMQ_PORT":     "5672",
	"RABBITMQ_USER":     "guest",
	"RABBITMQ_PASSWORD": "guest",
	"RATE_LIMIT_RPS":    2,
	"RATE_LIMIT_BURST":  4,
	"TRUST_PROXY":       false,
	"TLS_CERT_FILE":     "",
	"TLS_KEY_FILE":      "",
}

// loadConfig reads the .env file at path. Environment variables win over the file, and a missing
// file leaves the environment and the defaults.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
