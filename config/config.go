package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Inventory InventoryConfig `yaml:"inventory"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" env:"SKYLINE_HTTP_ADDRESS" env-default:":8080"`
	SwaggerDir string `yaml:"swagger_dir" env:"SKYLINE_SWAGGER_DIR"`
}

type GRPCConfig struct {
	Address string `yaml:"address" env:"SKYLINE_GRPC_ADDRESS" env-default:":9090"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"SKYLINE_LOG_LEVEL" env-default:"info"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"SKYLINE_DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"SKYLINE_DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"SKYLINE_DB_USER" env-default:"skyline"`
	Password string `yaml:"password" env:"SKYLINE_DB_PASSWORD"`
	Name     string `yaml:"name" env:"SKYLINE_DB_NAME" env-default:"pnr"`
	SSLMode  string `yaml:"ssl_mode" env:"SKYLINE_DB_SSL_MODE" env-default:"disable"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"SKYLINE_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"SKYLINE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"SKYLINE_REDIS_DB"`
}

// KafkaConfig maps the exchange/routing-key model onto Kafka: every exchange is
// a topic and routing keys travel as message headers.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"SKYLINE_KAFKA_BROKERS" env-default:"localhost:9092"`

	TicketExchange     string `yaml:"ticket_exchange" env:"SKYLINE_TICKET_EXCHANGE_NAME" env-default:"ticket"`
	EmailExchange      string `yaml:"email_exchange" env:"SKYLINE_EMAIL_EXCHANGE_NAME" env-default:"email"`
	DeadLetterExchange string `yaml:"dead_letter_exchange" env:"SKYLINE_DEAD_LETTER_EXCHANGE_NAME" env-default:"dead-letter"`

	TicketBookingRoutingKey            string `yaml:"ticket_booking_routing_key" env:"SKYLINE_TICKET_BOOKING_ROUTING_KEY" env-default:"ticket.booking"`
	EmailBookingConfirmationRoutingKey string `yaml:"email_booking_confirmation_routing_key" env:"SKYLINE_EMAIL_BOOKING_CONFIRMATION_ROUTING_KEY" env-default:"email.booking.confirmation"`
	EmailCancellationRoutingKey        string `yaml:"email_cancellation_routing_key" env:"SKYLINE_EMAIL_BOOKING_CANCELLATION_ROUTING_KEY" env-default:"email.booking.cancel"`
	EmailBoardingPassRoutingKey        string `yaml:"email_boarding_pass_routing_key" env:"SKYLINE_EMAIL_BOARDING_PASS_ROUTING_KEY" env-default:"email.boarding.ticket"`
	EmailTicketRoutingKey              string `yaml:"email_ticket_routing_key" env:"SKYLINE_EMAIL_TICKET_ROUTING_KEY" env-default:"email.booking.ticket"`

	TicketGroupID string `yaml:"ticket_group_id" env:"SKYLINE_TICKET_GROUP_ID" env-default:"ticketing"`
	EmailGroupID  string `yaml:"email_group_id" env:"SKYLINE_EMAIL_GROUP_ID" env-default:"email"`
	PrefetchCount int    `yaml:"prefetch_count" env:"SKYLINE_PREFETCH_COUNT" env-default:"1"`
}

type DispatchConfig struct {
	MaxRetries int `yaml:"max_retries" env:"SKYLINE_DISPATCH_MAX_RETRIES" env-default:"10"`
	BackoffMS  int `yaml:"backoff_ms" env:"SKYLINE_DISPATCH_BACKOFF_MS"`
}

func (d DispatchConfig) Backoff() time.Duration {
	return time.Duration(d.BackoffMS) * time.Millisecond
}

type InventoryConfig struct {
	SeatLockTTLSeconds int `yaml:"seat_lock_ttl_seconds" env:"SKYLINE_SEAT_LOCK_TTL_SECONDS" env-default:"30"`
}

func (i InventoryConfig) SeatLockTTL() time.Duration {
	return time.Duration(i.SeatLockTTLSeconds) * time.Second
}

// LoadConfig reads the YAML file at path, if it exists, and then applies
// environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("config: kafka.brokers is required")
	}
	if c.Dispatch.MaxRetries < 0 {
		return errors.New("config: dispatch.max_retries must not be negative")
	}
	if c.Kafka.PrefetchCount < 1 {
		return errors.New("config: kafka.prefetch_count must be positive")
	}
	return nil
}
