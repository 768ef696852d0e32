package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Parzival048/ecomreact/internal/domain/pricing"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string `usage:"Redis URL for the discount cache and shared rate limits (SHOP_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (SHOP_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Pricing      PricingConfig
	Cache        CacheConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PricingConfig holds the cart totals rules. Amounts are decimal strings.
type PricingConfig struct {
	FreeShippingThreshold string `default:"100"  usage:"Items price above which shipping is free" flag:"free-shipping-threshold"`
	ShippingFee           string `default:"10"   usage:"Flat shipping fee" flag:"shipping-fee"`
	TaxRate               string `default:"0.15" usage:"Tax rate applied to the items price" flag:"tax-rate"`
}

// CacheConfig controls the Redis copy of the live discount set.
type CacheConfig struct {
	DiscountsKey string        `default:"shop:discounts:live" usage:"Redis key of the live discount set" flag:"cache-discounts-key"`
	DiscountsTTL time.Duration `default:"30s" usage:"Lifetime of the cached discount set" flag:"cache-discounts-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// Prefix namespaces limiter keys when Redis is configured.
	Prefix string `default:"shop:ratelimit:" usage:"Redis key prefix for rate limit windows" flag:"rate-limit-prefix"`
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

// Calculator returns the pricing rules as a pricing.Config.
func (c PricingConfig) Calculator() (pricing.Config, error) {
	var (
		cfg pricing.Config
		err error
	)
	if cfg.FreeShippingThreshold, err = decimal.NewFromString(c.FreeShippingThreshold); err != nil {
		return cfg, errors.Wrap(err, "free shipping threshold")
	}
	if cfg.ShippingFee, err = decimal.NewFromString(c.ShippingFee); err != nil {
		return cfg, errors.Wrap(err, "shipping fee")
	}
	if cfg.TaxRate, err = decimal.NewFromString(c.TaxRate); err != nil {
		return cfg, errors.Wrap(err, "tax rate")
	}
	if cfg.FreeShippingThreshold.IsNegative() || cfg.ShippingFee.IsNegative() || cfg.TaxRate.IsNegative() {
		return cfg, errors.New("pricing amounts must not be negative")
	}
	return cfg, nil
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.Pricing.Calculator(); err != nil {
		return nil, errors.Wrap(err, "pricing")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
