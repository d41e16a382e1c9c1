package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (BASKET_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	ImageBaseURL string `default:"" usage:"Base URL for relative product and recipe images" flag:"image-base-url"`
	Storage      StorageConfig
	Store        StoreConfig
	Auth         AuthConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// StorageConfig selects the document store backend.
type StorageConfig struct {
	Driver      string `default:"memory" usage:"Document store driver: memory or postgres"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BASKET_STORAGE_DATABASEURL or DATABASE_URL)" flag:"database-url"`
}

// StoreConfig holds storefront pricing settings.
type StoreConfig struct {
	Shipping       string `default:"10.00" usage:"Flat shipping fee added to every order"`
	CurrencySymbol string `default:"R$" usage:"Currency symbol used in formatted amounts" flag:"currency-symbol"`
}

// AuthConfig controls credential handling.
type AuthConfig struct {
	TokenPepper       string `usage:"HMAC pepper for session token hashing (BASKET_AUTH_TOKENPEPPER)" flag:"token-pepper"`
	PasswordBlocklist string `usage:"Path to a password blocklist built by password-blocklist" flag:"password-blocklist"`
	MinPasswordLength int    `default:"6" usage:"Minimum password length" flag:"min-password-length"`
}

// KafkaConfig enables order event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers string `usage:"Comma separated Kafka brokers; empty disables order events"`
	Topic   string `default:"basket.orders" usage:"Kafka topic for order events"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
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

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BASKET",
		Files:     []string{"config.yaml", "/etc/basket/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's BASKET_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate checks values that cannot be expressed as struct tag defaults.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required for postgres storage: set BASKET_STORAGE_DATABASEURL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	shipping, err := c.Shipping()
	if err != nil {
		return err
	}
	if shipping.IsNegative() {
		return errors.Errorf("shipping fee %s is negative", shipping)
	}
	return nil
}

// Shipping parses the configured flat shipping fee.
func (c *Config) Shipping() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Store.Shipping)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse shipping fee %q", c.Store.Shipping)
	}
	return d, nil
}
