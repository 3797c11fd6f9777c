package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" envconfig:"HTTP_ADDRESS"`
	SwaggerDir string `yaml:"swagger_dir" envconfig:"HTTP_SWAGGER_DIR"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"DB_SSL_MODE"`
	MaxConns int32  `yaml:"max_conns" envconfig:"DB_MAX_CONNS"`
}

func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	if d.MaxConns > 0 {
		dsn += fmt.Sprintf(" pool_max_conns=%d", d.MaxConns)
	}
	return dsn
}

// URL is the connection string form golang-migrate expects.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`
	BookingEventsTopic string   `yaml:"booking_events_topic" envconfig:"KAFKA_BOOKING_EVENTS_TOPIC"`
	GroupID            string   `yaml:"group_id" envconfig:"KAFKA_GROUP_ID"`
}

type BookingConfig struct {
	MaxDaysAhead            int    `yaml:"max_days_ahead" envconfig:"BOOKING_MAX_DAYS_AHEAD"`
	AdmissionTimeoutMs      int    `yaml:"admission_timeout_ms" envconfig:"BOOKING_ADMISSION_TIMEOUT_MS"`
	ScheduleCacheTTLSeconds int    `yaml:"schedule_cache_ttl_seconds" envconfig:"BOOKING_SCHEDULE_CACHE_TTL_SECONDS"`
	Timezone                string `yaml:"timezone" envconfig:"BOOKING_TIMEZONE"`
}

func (b BookingConfig) AdmissionTimeout() time.Duration {
	return time.Duration(b.AdmissionTimeoutMs) * time.Millisecond
}

func (b BookingConfig) ScheduleCacheTTL() time.Duration {
	return time.Duration(b.ScheduleCacheTTLSeconds) * time.Second
}

func (b BookingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" envconfig:"AUTH_JWT_SECRET"`
	Issuer    string `yaml:"issuer" envconfig:"AUTH_ISSUER"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// envPrefix scopes environment overrides, e.g. CLINIC_DB_HOST.
const envPrefix = "CLINIC"

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	sections := []any{&cfg.HTTP, &cfg.Database, &cfg.Redis, &cfg.Kafka, &cfg.Booking, &cfg.Auth, &cfg.Log}
	for _, section := range sections {
		if err := envconfig.Process(envPrefix, section); err != nil {
			return fmt.Errorf("failed to apply env overrides: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Kafka.BookingEventsTopic == "" {
		c.Kafka.BookingEventsTopic = "booking-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "booking-audit"
	}
	if c.Booking.MaxDaysAhead == 0 {
		c.Booking.MaxDaysAhead = 90
	}
	if c.Booking.AdmissionTimeoutMs == 0 {
		c.Booking.AdmissionTimeoutMs = 5000
	}
	if c.Booking.ScheduleCacheTTLSeconds == 0 {
		c.Booking.ScheduleCacheTTLSeconds = 300
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	if c.Booking.MaxDaysAhead < 0 {
		return fmt.Errorf("booking.max_days_ahead must not be negative")
	}
	if c.Booking.AdmissionTimeoutMs < 0 {
		return fmt.Errorf("booking.admission_timeout_ms must not be negative")
	}
	if _, err := c.Booking.Location(); err != nil {
		return fmt.Errorf("booking.timezone: %w", err)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}
