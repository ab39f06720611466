// Package config loads the service settings from defaults, an optional
// config/config.yaml and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lavega/order-pipeline/app/importer"
)

type Config struct {
	HTTP     HTTPConfig       `mapstructure:"http"`
	Database DatabaseConfig   `mapstructure:"database"`
	Events   EventsConfig     `mapstructure:"events"`
	Reports  ReportsConfig    `mapstructure:"reports"`
	Import   importer.Columns `mapstructure:"import"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	UploadMaxBytes int64    `mapstructure:"upload_max_bytes"`
	// UploadRate limits imports per client, in limiter format ("10-M").
	UploadRate string `mapstructure:"upload_rate"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	LogLevel string `mapstructure:"log_level"`
}

// DSN renders the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type EventsConfig struct {
	Driver string      `mapstructure:"driver"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type ReportsConfig struct {
	AssemblySort string `mapstructure:"assembly_sort"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsRedis = "redis"
)

// Load reads .env when present, then builds the configuration. Every key can be
// overridden by its upper-case environment variable with dots replaced by
// underscores, e.g. DATABASE_HOST.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return load(viper.New(), "./config")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("Config file not found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.upload_max_bytes", 10<<20)
	v.SetDefault("http.upload_rate", "10-M")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "orders")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("events.driver", EventsNone)
	v.SetDefault("events.kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("events.kafka.topic", "orders")
	v.SetDefault("events.redis.addr", "localhost:6379")
	v.SetDefault("events.redis.password", "")
	v.SetDefault("events.redis.db", 0)
	v.SetDefault("events.redis.channel", "orders")

	v.SetDefault("reports.assembly_sort", "order_number")

	cols := importer.DefaultColumns()
	for key, header := range map[string]string{
		"order_number":    cols.OrderNumber,
		"email":           cols.Email,
		"shipping_name":   cols.ShippingName,
		"billing_name":    cols.BillingName,
		"address":         cols.Address,
		"phone":           cols.Phone,
		"shipping_phone":  cols.ShippingPhone,
		"total":           cols.Total,
		"created_at":      cols.CreatedAt,
		"product_name":    cols.ProductName,
		"quantity":        cols.Quantity,
		"price":           cols.Price,
		"sku":             cols.SKU,
		"unit":            cols.Unit,
		"note_attributes": cols.NoteAttributes,
	} {
		v.SetDefault("import."+key, header)
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Events.Driver {
	case EventsNone, EventsKafka, EventsRedis:
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}
	if c.HTTP.UploadMaxBytes <= 0 {
		return errors.New("http.upload_max_bytes must be positive")
	}
	return nil
}
