package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from a .env
// file, environment variables (FLOWERSHOP_ prefix), flags, or YAML files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	ImageBaseURL string `default:"" usage:"Base URL prepended to relative flower image paths" flag:"image-base-url"`
	Database     DatabaseConfig
	Seed         SeedConfig
	Orders       OrdersConfig
	Events       EventsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	URL      string `default:"file:flowershop.db" usage:"SQLite DSN or postgres:// URL (FLOWERSHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MaxConns int32  `default:"10" usage:"PostgreSQL pool size" flag:"database-max-conns"`
}

// SeedConfig controls catalog seeding at startup.
type SeedConfig struct {
	OnStartup bool `default:"true" usage:"Insert missing shops, flowers and coupons on start" flag:"seed-on-startup"`
}

// OrdersConfig tunes order submission.
type OrdersConfig struct {
	CommitTimeout time.Duration `default:"5s" usage:"Deadline for the order commit transaction" flag:"commit-timeout"`
}

// EventsConfig enables order events. Events are disabled without brokers.
type EventsConfig struct {
	Brokers []string `usage:"Kafka seed brokers" flag:"kafka-brokers"`
	Topic   string   `default:"flowershop.orders" usage:"Kafka topic for order events" flag:"kafka-topic"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig reads an optional .env file, then loads configuration from
// environment variables, YAML config files and flags, and applies
// platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return load(aconfig.Config{
		EnvPrefix: "FLOWERSHOP",
		Files:     []string{"config.yaml", "/etc/flowershop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func load(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv exports variables from path unless they are already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's FLOWERSHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if os.Getenv("FLOWERSHOP_DATABASE_URL") == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Database.URL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.Database.URL == "":
		return errors.New("database URL is required: set FLOWERSHOP_DATABASE_URL or DATABASE_URL")
	case c.Orders.CommitTimeout <= 0:
		return errors.New("orders commit timeout must be positive")
	case c.RateLimit.Max > 0 && c.RateLimit.Window <= 0:
		return errors.New("rate limit window must be positive")
	case len(c.Events.Brokers) > 0 && c.Events.Topic == "":
		return errors.New("events topic is required when brokers are set")
	}
	return nil
}
