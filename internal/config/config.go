package config

import (
	"os"
	"strings"
	"time"

	"caskmarket-backend/internal/infrastructure/events"

	"github.com/spf13/viper"
)

const defaultReservationWindow = 72 * time.Hour

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	StripeSecretKey     string
	StripeWebhookSecret string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	KafkaBrokers        []string // KAFKA_BROKERS, comma separated; empty disables order events
	KafkaOrderTopic     string
	ReservationWindow   time.Duration // RESERVATION_WINDOW, e.g. "72h"
	ProbeTimeout        time.Duration
	StripeHealthURL     string // optional HTTP probe reported on /health/json
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("KAFKA_ORDER_TOPIC", "caskmarket.orders")
	v.SetDefault("RESERVATION_WINDOW", defaultReservationWindow.String())
	v.SetDefault("HEALTH_PROBE_TIMEOUT", "2s")

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := v.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = v.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = v.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	window := v.GetDuration("RESERVATION_WINDOW")
	if window <= 0 {
		window = defaultReservationWindow
	}
	probeTimeout := v.GetDuration("HEALTH_PROBE_TIMEOUT")
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}

	return &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
		DatabaseURL:         dbURL,
		RedisURL:            v.GetString("REDIS_URL"),
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		KafkaBrokers:        events.ParseBrokers(v.GetString("KAFKA_BROKERS")),
		KafkaOrderTopic:     v.GetString("KAFKA_ORDER_TOPIC"),
		ReservationWindow:   window,
		ProbeTimeout:        probeTimeout,
		StripeHealthURL:     v.GetString("STRIPE_HEALTH_URL"),
	}, nil
}
