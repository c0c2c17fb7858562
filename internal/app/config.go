package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete service configuration, loadable from environment
// variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	Pipeline     PipelineConfig
	Inventory    InventoryConfig
	Notify       NotifyConfig
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
}

// PipelineConfig tunes order submission.
type PipelineConfig struct {
	CallTimeout time.Duration `default:"5s" usage:"Timeout for each inventory, storage or notification call (0 disables)" flag:"call-timeout"`
}

// InventoryConfig selects the stock backend.
type InventoryConfig struct {
	Backend string `default:"postgres" usage:"Inventory backend: memory, postgres or redis"`
	Redis   RedisConfig
}

// RedisConfig locates the Redis server used for inventory.
type RedisConfig struct {
	Addr     string `default:"localhost:6379" usage:"Redis address"`
	Password string `usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database number"`
}

// NotifyConfig selects how confirmations are delivered.
type NotifyConfig struct {
	Backend string `default:"log" usage:"Notification backend: log, smtp or kafka"`
	SMTP    SMTPConfig
	Kafka   KafkaConfig
}

// SMTPConfig configures the mail relay.
type SMTPConfig struct {
	Addr     string `usage:"SMTP relay host:port"`
	From     string `default:"orders@localhost" usage:"Sender address"`
	Username string `usage:"SMTP username"`
	Password string `usage:"SMTP password"`
}

// KafkaConfig configures the confirmation topic.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka broker addresses"`
	Topic   string   `default:"order-confirmations" usage:"Confirmation topic"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	NotifyLog   = "log"
	NotifySMTP  = "smtp"
	NotifyKafka = "kafka"
)

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults and validates it.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "ORDERS",
		Files:     []string{"config.yaml", "/etc/orders/config.yaml"},
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Inventory.Backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return errors.Errorf("unknown inventory backend %q", c.Inventory.Backend)
	}
	switch c.Notify.Backend {
	case NotifyLog:
	case NotifySMTP:
		if c.Notify.SMTP.Addr == "" {
			return errors.New("smtp notifier requires ORDERS_NOTIFY_SMTP_ADDR")
		}
	case NotifyKafka:
		if len(c.Notify.Kafka.Brokers) == 0 {
			return errors.New("kafka notifier requires ORDERS_NOTIFY_KAFKA_BROKERS")
		}
	default:
		return errors.Errorf("unknown notify backend %q", c.Notify.Backend)
	}
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}
	if c.Pipeline.CallTimeout < 0 {
		return errors.New("call timeout must not be negative")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT onto
// the ORDERS_-prefixed configuration.
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
