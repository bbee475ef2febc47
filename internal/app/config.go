package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/devmaster/food-delivery/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (DELIVERY_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (DELIVERY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Pricing     PricingConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PricingConfig holds the delivery fee and ETA parameters. Monetary values
// are decimal strings.
type PricingConfig struct {
	BaseFee          string  `default:"5.00" usage:"Base delivery fee" flag:"base-fee"`
	PerKmRate        string  `default:"1.50" usage:"Delivery fee per kilometer" flag:"per-km-rate"`
	MinFee           string  `default:"0"    usage:"Minimum delivery fee" flag:"min-fee"`
	MaxFee           string  `default:"0"    usage:"Maximum delivery fee, 0 for no cap" flag:"max-fee"`
	AvgSpeedKmh      float64 `default:"20"   usage:"Average courier speed in km/h" flag:"avg-speed"`
	MinTravelMinutes int     `default:"10"   usage:"Minimum travel time in minutes" flag:"min-travel-minutes"`
}

// Params converts the configured strings into pricing parameters.
func (c PricingConfig) Params() (pricing.Params, error) {
	var (
		params pricing.Params
		err    error
	)
	if params.BaseFee, err = decimal.NewFromString(c.BaseFee); err != nil {
		return params, errors.Wrap(err, "base fee")
	}
	if params.PerKmRate, err = decimal.NewFromString(c.PerKmRate); err != nil {
		return params, errors.Wrap(err, "per-km rate")
	}
	if params.MinFee, err = decimal.NewFromString(c.MinFee); err != nil {
		return params, errors.Wrap(err, "min fee")
	}
	if params.MaxFee, err = decimal.NewFromString(c.MaxFee); err != nil {
		return params, errors.Wrap(err, "max fee")
	}
	params.AvgSpeedKmh = c.AvgSpeedKmh
	params.MinTravelMinutes = c.MinTravelMinutes
	return params, nil
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
		EnvPrefix: "DELIVERY",
		Files:     []string{"config.yaml", "/etc/food-delivery/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set DELIVERY_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the DELIVERY_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
