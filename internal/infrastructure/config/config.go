package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Auth          AuthConfig          `mapstructure:"auth"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int               `mapstructure:"port"`
	ReadTimeout     time.Duration     `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration     `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration     `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig        `mapstructure:"cors"`
	RateLimit       RateLimitConfig   `mapstructure:"rate_limit"`
	Idempotency     IdempotencyConfig `mapstructure:"idempotency"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// IdempotencyConfig governs replay of Idempotency-Key requests.
type IdempotencyConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// CheckoutConfig selects and tunes the checkout provider.
type CheckoutConfig struct {
	// Provider is "sandbox" or "hosted".
	Provider         string        `mapstructure:"provider"`
	SDKVersion       string        `mapstructure:"sdk_version"`
	CallbackTimeout  time.Duration `mapstructure:"callback_timeout"`
	CancelCodes      []string      `mapstructure:"cancel_codes"`
	MaxWait          time.Duration `mapstructure:"max_wait"`
	RecordRetries    int           `mapstructure:"record_retries"`
	RecordRetryDelay time.Duration `mapstructure:"record_retry_delay"`
	Sandbox          SandboxConfig `mapstructure:"sandbox"`
	Relay            RelayConfig   `mapstructure:"relay"`
	Outbox           OutboxConfig  `mapstructure:"outbox"`
}

// RelayConfig tunes the consumer of checkout:callbacks used with the hosted
// provider. Each instance needs its own consumer group because only the
// instance holding a checkout can settle it; an empty group defaults to
// "checkout-api-<instance_id>".
type RelayConfig struct {
	ConsumerGroup string        `mapstructure:"consumer_group"`
	BatchSize     int64         `mapstructure:"batch_size"`
	BlockDuration time.Duration `mapstructure:"block_duration"`
}

// OutboxConfig tunes publishing of recorded outcomes to checkout:outcomes.
type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type SandboxConfig struct {
	Latency       time.Duration `mapstructure:"latency"`
	FailureRate   float64       `mapstructure:"failure_rate"`
	CancelRate    float64       `mapstructure:"cancel_rate"`
	SigningSecret string        `mapstructure:"signing_secret"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

var envKeyReplacer = strings.NewReplacer(".", "_")

const (
	ProviderSandbox = "sandbox"
	ProviderHosted  = "hosted"
)

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("CHECKOUT")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/checkout")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Checkout.Relay.ConsumerGroup == "" && cfg.InstanceID != "" {
		cfg.Checkout.Relay.ConsumerGroup = "checkout-api-" + cfg.InstanceID
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Server.Idempotency.TTL <= 0 {
		errs = append(errs, fmt.Errorf("server.idempotency.ttl must be positive"))
	}
	if c.Server.Idempotency.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.idempotency.cleanup_interval must be positive"))
	}
	if c.InstanceID == "" {
		errs = append(errs, fmt.Errorf("instance_id is required"))
	}

	switch c.Checkout.Provider {
	case ProviderSandbox, ProviderHosted:
	default:
		errs = append(errs, fmt.Errorf("checkout.provider must be %q or %q, got %q", ProviderSandbox, ProviderHosted, c.Checkout.Provider))
	}
	if c.Checkout.CallbackTimeout < 0 {
		errs = append(errs, fmt.Errorf("checkout.callback_timeout must not be negative"))
	}
	if c.Checkout.MaxWait <= 0 {
		errs = append(errs, fmt.Errorf("checkout.max_wait must be positive"))
	}
	if c.Checkout.RecordRetries < 1 {
		errs = append(errs, fmt.Errorf("checkout.record_retries must be at least 1"))
	}
	if c.Checkout.Provider == ProviderHosted {
		if c.Checkout.Relay.ConsumerGroup == "" {
			errs = append(errs, fmt.Errorf("checkout.relay.consumer_group is required for the hosted provider"))
		}
		if c.Checkout.Relay.BatchSize <= 0 {
			errs = append(errs, fmt.Errorf("checkout.relay.batch_size must be positive"))
		}
	}
	if o := c.Checkout.Outbox; o.PollInterval <= 0 || o.BatchSize <= 0 || o.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("checkout.outbox needs a positive poll_interval and batch_size and at least one max_retries"))
	}
	if r := c.Checkout.Sandbox; r.FailureRate < 0 || r.CancelRate < 0 || r.FailureRate+r.CancelRate > 1 {
		errs = append(errs, fmt.Errorf("checkout.sandbox rates must be non-negative and sum to at most 1"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
		}
		if c.Checkout.Provider == ProviderSandbox {
			errs = append(errs, fmt.Errorf("checkout.provider sandbox is not allowed in production"))
		}
	}

	// JWT secret length validation
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.idempotency.ttl", "24h")
	v.SetDefault("server.idempotency.cleanup_interval", "1h")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "checkout")
	v.SetDefault("database.database", "checkout")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Checkout defaults
	v.SetDefault("checkout.provider", ProviderSandbox)
	v.SetDefault("checkout.sdk_version", "1.6.40")
	v.SetDefault("checkout.callback_timeout", "0s")
	v.SetDefault("checkout.cancel_codes", []string{"0"})
	v.SetDefault("checkout.max_wait", "60s")
	v.SetDefault("checkout.record_retries", 3)
	v.SetDefault("checkout.record_retry_delay", "200ms")
	v.SetDefault("checkout.sandbox.latency", "2s")
	v.SetDefault("checkout.sandbox.failure_rate", 0.1)
	v.SetDefault("checkout.sandbox.cancel_rate", 0.1)
	v.SetDefault("checkout.relay.consumer_group", "")
	v.SetDefault("checkout.relay.batch_size", 10)
	v.SetDefault("checkout.relay.block_duration", "2s")
	v.SetDefault("checkout.outbox.poll_interval", "1s")
	v.SetDefault("checkout.outbox.batch_size", 10)
	v.SetDefault("checkout.outbox.max_retries", 5)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Auth defaults
	v.SetDefault("auth.jwt_issuer", "checkout")

	// Instance ID
	v.SetDefault("instance_id", "checkout-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatabaseURL is the DSN in URL form, as golang-migrate expects it.
func (c *DatabaseConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
