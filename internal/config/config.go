// Package config provides the structures and loader for the service
// configuration, read from a YAML file with environment overrides.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top-level configuration of the service.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitConnection        `yaml:"rabbit_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Providers               ProvidersConfig `yaml:"providers"`
	Checkout                CheckoutConfig  `yaml:"checkout"`
}

// HTTPServer holds the listener settings.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"0.0.0.0:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection holds the settings of the payment-status cache.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitConnection holds the RabbitMQ settings for import events. Optional:
// an empty URL disables event publishing.
type RabbitConnection struct {
	URL        string        `yaml:"url" env:"RABBIT_URL"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken holds the signing settings for issued tokens.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// ProvidersConfig enables and configures the payment vendors. The flags are
// read once at startup when the registry is built.
type ProvidersConfig struct {
	Stripe       StripeConfig       `yaml:"stripe"`
	LemonSqueezy LemonSqueezyConfig `yaml:"lemonsqueezy"`
	Polar        PolarConfig        `yaml:"polar"`
}

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	Enabled       bool   `yaml:"enabled" env:"STRIPE_ENABLED"`
	APIKey        string `yaml:"api_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
}

// LemonSqueezyConfig configures the LemonSqueezy adapter.
type LemonSqueezyConfig struct {
	Enabled       bool   `yaml:"enabled" env:"LEMONSQUEEZY_ENABLED"`
	APIKey        string `yaml:"api_key" env:"LEMONSQUEEZY_API_KEY"`
	StoreID       string `yaml:"store_id" env:"LEMONSQUEEZY_STORE_ID"`
	WebhookSecret string `yaml:"webhook_secret" env:"LEMONSQUEEZY_WEBHOOK_SECRET"`
}

// PolarConfig configures the Polar adapter.
type PolarConfig struct {
	Enabled        bool   `yaml:"enabled" env:"POLAR_ENABLED"`
	AccessToken    string `yaml:"access_token" env:"POLAR_ACCESS_TOKEN"`
	OrganizationID string `yaml:"organization_id" env:"POLAR_ORGANIZATION_ID"`
	WebhookSecret  string `yaml:"webhook_secret" env:"POLAR_WEBHOOK_SECRET"`
}

// CheckoutConfig holds default redirect URLs for hosted checkout pages.
type CheckoutConfig struct {
	SuccessURL string `yaml:"success_url" env-default:"http://localhost:3000/checkout/success"`
	CancelURL  string `yaml:"cancel_url" env-default:"http://localhost:3000/pricing"`
}

// MustLoad loads the configuration from CONFIG_PATH and exits on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
