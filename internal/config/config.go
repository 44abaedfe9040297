// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"bizdesk/internal/database"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved server configuration.
type Config struct {
	Port                 string
	GoogleClientID       string
	GoogleClientSecret   string
	BackendURL           string
	FrontendURL          string
	JWTSecret            string
	SessionSecret        string
	TokenTTL             time.Duration
	DatabaseDriver       string
	DatabaseDSN          string
	RabbitMQURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	AuthRateLimit        int
	AuthRateWindow       time.Duration
	CustomersRequireAuth bool
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("BACKEND_URL", "http://localhost:3000")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("DATABASE_DRIVER", database.DriverPostgres)
	v.SetDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=bizdesk port=5432 sslmode=disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AUTH_RATE_LIMIT", 20)
	v.SetDefault("AUTH_RATE_WINDOW", "1m")
	v.SetDefault("CUSTOMERS_REQUIRE_AUTH", false)
}

// LoadDotEnv loads a .env file into the process environment when one is
// present. Variables already set take precedence.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load reads the configuration from v, which must have AutomaticEnv
// enabled or the keys set explicitly.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		GoogleClientID:       v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   v.GetString("GOOGLE_CLIENT_SECRET"),
		BackendURL:           strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
		FrontendURL:          strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		SessionSecret:        v.GetString("SESSION_SECRET"),
		TokenTTL:             v.GetDuration("TOKEN_TTL"),
		DatabaseDriver:       strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		RabbitMQURL:          v.GetString("RABBITMQ_URL"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		AuthRateLimit:        v.GetInt("AUTH_RATE_LIMIT"),
		AuthRateWindow:       v.GetDuration("AUTH_RATE_WINDOW"),
		CustomersRequireAuth: v.GetBool("CUSTOMERS_REQUIRE_AUTH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.SessionSecret == "" {
		problems = append(problems, "SESSION_SECRET is required")
	}
	switch c.DatabaseDriver {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.RedisAddr != "" && (c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0) {
		problems = append(problems, "AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GoogleRedirectURL is the OAuth callback registered with Google.
func (c *Config) GoogleRedirectURL() string {
	return c.BackendURL + "/api/auth/google/callback"
}

// ListenAddr is the address passed to fiber.App.Listen.
func (c *Config) ListenAddr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
