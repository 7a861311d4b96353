package config

import (
	"fmt"
	"time"

	"github.com/avvvet/coffeebuddy/internal/core"
	"github.com/kelseyhightower/envconfig"
)

// Transport and delivery backend names accepted by Validate.
const (
	TransportHTTP = "http"
	TransportNATS = "nats"
	TransportBoth = "both"

	DeliveryLog   = "log"
	DeliveryNATS  = "nats"
	DeliveryRedis = "redis"
)

type Config struct {
	ServiceName     string        `envconfig:"SERVICE_NAME" default:"coffeebuddy"`
	Environment     string        `envconfig:"APP_ENV" default:"development"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	Transport       string        `envconfig:"TRANSPORT" default:"http"`
	PipelineTimeout time.Duration `envconfig:"PIPELINE_TIMEOUT" default:"90s"`

	Anthropic AnthropicConfig
	Retry     RetryConfig
	Nats      NatsConfig
	Redis     RedisConfig
	Catalog   CatalogConfig
	Delivery  DeliveryConfig
}

type AnthropicConfig struct {
	APIKey      string        `envconfig:"ANTHROPIC_API_KEY" required:"true"`
	URL         string        `envconfig:"ANTHROPIC_URL" default:"https://api.anthropic.com/v1/messages"`
	Version     string        `envconfig:"ANTHROPIC_VERSION" default:"2023-06-01"`
	Model       string        `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-sonnet-20240620"`
	MaxTokens   int           `envconfig:"ANTHROPIC_MAX_TOKENS" default:"500"`
	Temperature float64       `envconfig:"ANTHROPIC_TEMPERATURE" default:"0"`
	TopP        float64       `envconfig:"ANTHROPIC_TOP_P" default:"0.1"`
	Timeout     time.Duration `envconfig:"ANTHROPIC_TIMEOUT" default:"30s"`
}

type RetryConfig struct {
	MaxAttempts  int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	InitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"1s"`
}

type NatsConfig struct {
	URL            string        `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	RequestSubject string        `envconfig:"NATS_REQUEST_SUBJECT" default:"coffee.message"`
	OrderSubject   string        `envconfig:"NATS_ORDER_SUBJECT" default:"coffee.orders"`
	AuditSubject   string        `envconfig:"NATS_AUDIT_SUBJECT" default:"coffee.audit"`
	Timeout        time.Duration `envconfig:"NATS_TIMEOUT" default:"30s"`
	MaxInFlight    int           `envconfig:"NATS_MAX_IN_FLIGHT" default:"64"`
}

type RedisConfig struct {
	URL string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	TTL time.Duration `envconfig:"REDIS_TTL" default:"720h"`
}

type CatalogConfig struct {
	Path         string `envconfig:"CATALOG_PATH" default:"coffee_data.json"`
	TemplatePath string `envconfig:"PROMPT_TEMPLATE_PATH"`
}

type DeliveryConfig struct {
	Backend string `envconfig:"DELIVERY_BACKEND" default:"log"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("RETRY_INITIAL_DELAY must be positive, got %s", c.Retry.InitialDelay)
	}
	if c.Nats.MaxInFlight < 1 {
		return fmt.Errorf("NATS_MAX_IN_FLIGHT must be at least 1, got %d", c.Nats.MaxInFlight)
	}

	switch c.Transport {
	case TransportHTTP, TransportNATS, TransportBoth:
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport)
	}

	switch c.Delivery.Backend {
	case DeliveryLog, DeliveryNATS, DeliveryRedis:
	default:
		return fmt.Errorf("unknown DELIVERY_BACKEND %q", c.Delivery.Backend)
	}

	return nil
}

func (c *Config) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// NeedsNATS reports whether any enabled component talks to NATS.
func (c *Config) NeedsNATS() bool {
	return c.Transport != TransportHTTP || c.Delivery.Backend == DeliveryNATS
}
