package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	base "brokerage/libs/config"
)

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

type KafkaTopics struct {
	Orders         string
	OrderProcessed string
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	Topics        KafkaTopics
}

type Config struct {
	App            base.AppConfig
	DB             DBConfig
	Kafka          KafkaConfig
	CurrencySymbol string
	JWTSecret      string
}

func Load() (*Config, error) {
	appCfg, err := base.Load(os.Getenv("BRK_CONFIG"))
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("BRK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := os.Getenv("BRK_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "account-service")
	v.SetDefault("kafka.topics.orders", "orderdb.public.orders")
	v.SetDefault("kafka.topics.order_processed", "account.order.processed")
	v.SetDefault("currency_symbol", "TRY")

	cfg := &Config{
		App: *appCfg,
		DB: DBConfig{
			Host:     envString("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			Name:     envString("POSTGRES_DB", "brokerage"),
			User:     envString("POSTGRES_USER", "brokerage"),
			Password: envString("POSTGRES_PASSWORD", "brokerage"),
			SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       envCSV("KAFKA_BROKERS", v.GetStringSlice("kafka.brokers")),
			ConsumerGroup: envString("KAFKA_CONSUMER_GROUP", v.GetString("kafka.consumer_group")),
			Topics: KafkaTopics{
				Orders:         envString("KAFKA_ORDERS_TOPIC", v.GetString("kafka.topics.orders")),
				OrderProcessed: envString("KAFKA_ORDER_PROCESSED_TOPIC", v.GetString("kafka.topics.order_processed")),
			},
		},
		CurrencySymbol: envString("BRK_CURRENCY_SYMBOL", v.GetString("currency_symbol")),
		JWTSecret:      envString("BRK_JWT_SECRET", v.GetString("jwt_secret")),
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	if cfg.Kafka.ConsumerGroup == "" {
		return nil, fmt.Errorf("kafka consumer group required")
	}
	if cfg.Kafka.Topics.Orders == "" {
		return nil, fmt.Errorf("kafka orders topic required")
	}
	if cfg.Kafka.Topics.OrderProcessed == "" {
		return nil, fmt.Errorf("kafka order processed topic required")
	}
	if cfg.CurrencySymbol == "" {
		return nil, fmt.Errorf("currency symbol required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}

	return cfg, nil
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envCSV(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
