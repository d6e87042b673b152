package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	OpsAddr     string `default:"0.0.0.0:8081" usage:"Ops listener address (/livez, /readyz)" flag:"ops-addr"`
	DatabaseURL string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	NATS        NATSConfig
	Graceful    GracefulConfig
}

// NATSConfig controls the message transport: inbound command subscriptions
// and the outbound product lookup.
type NATSConfig struct {
	URL             string        `default:"nats://127.0.0.1:4222" usage:"NATS server URL"`
	QueueGroup      string        `default:"orders" usage:"Queue group for command subscriptions" flag:"queue-group"`
	ProductsSubject string        `default:"validate_products" usage:"Subject answered by the products service" flag:"products-subject"`
	LookupTimeout   time.Duration `default:"5s" usage:"Product lookup request timeout" flag:"lookup-timeout"`
	HandleTimeout   time.Duration `default:"10s" usage:"Per-command handling timeout" flag:"handle-timeout"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before draining" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps standard environment variable names
// (DATABASE_URL, NATS_URL) to the ORDERS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if v := os.Getenv("NATS_URL"); v != "" && c.NATS.URL == "nats://127.0.0.1:4222" {
		c.NATS.URL = v
	}
}
