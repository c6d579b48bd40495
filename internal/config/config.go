package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig aggregates runtime configuration, injected through environment
// variables so nothing is hard-coded.
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	RedisAddr string
	RedisDB   int

	// Kafka cluster (comma separated), topic and consumer group for the
	// notification pipeline.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Checkout rate limit and the product-list read cache TTL.
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
	ProductCacheTTL    time.Duration

	// Flat delivery fee in minor units, applied when fulfillment is delivery.
	DeliveryFee int64

	// Simple admin token guarding the back-office endpoints.
	AdminToken string

	// Anti-automation secret; empty disables the check.
	TurnstileSecret string

	// Outgoing mail. Empty SMTPAddr makes the mailer log-only.
	SMTPAddr string
	MailFrom string
}

// Load reads and validates configuration, falling back to defaults.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", "bakehouse.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            0,
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "bakehouse-notifications"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "bakehouse-mailer"),
		CheckoutRateLimit:  30,
		CheckoutRateWindow: time.Minute,
		ProductCacheTTL:    5 * time.Minute,
		DeliveryFee:        500,
		AdminToken:         getEnv("ADMIN_TOKEN", "dev-admin-token"),
		TurnstileSecret:    getEnv("TURNSTILE_SECRET", ""),
		SMTPAddr:           getEnv("SMTP_ADDR", ""),
		MailFrom:           getEnv("MAIL_FROM", "orders@bakehouse.local"),
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	rateLimit, err := getEnvInt("CHECKOUT_RATE_LIMIT", cfg.CheckoutRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid CHECKOUT_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("CHECKOUT_RATE_LIMIT must be > 0")
	}
	cfg.CheckoutRateLimit = rateLimit

	windowSec, err := getEnvInt("CHECKOUT_RATE_WINDOW_SEC", int(cfg.CheckoutRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid CHECKOUT_RATE_WINDOW_SEC: %w", err)
	}
	if windowSec <= 0 {
		return AppConfig{}, fmt.Errorf("CHECKOUT_RATE_WINDOW_SEC must be > 0")
	}
	cfg.CheckoutRateWindow = time.Duration(windowSec) * time.Second

	cacheTTLSec, err := getEnvInt("PRODUCT_CACHE_TTL_SEC", int(cfg.ProductCacheTTL.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid PRODUCT_CACHE_TTL_SEC: %w", err)
	}
	if cacheTTLSec <= 0 {
		return AppConfig{}, fmt.Errorf("PRODUCT_CACHE_TTL_SEC must be > 0")
	}
	cfg.ProductCacheTTL = time.Duration(cacheTTLSec) * time.Second

	deliveryFee, err := getEnvInt("DELIVERY_FEE_CENTS", int(cfg.DeliveryFee))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid DELIVERY_FEE_CENTS: %w", err)
	}
	if deliveryFee < 0 {
		return AppConfig{}, fmt.Errorf("DELIVERY_FEE_CENTS must be >= 0")
	}
	cfg.DeliveryFee = int64(deliveryFee)

	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
	}
	if cfg.KafkaGroupID == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}

	return cfg, nil
}

// getEnv reads a string env var, returning the fallback when unset.
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// getEnvInt reads an integer env var, returning the fallback when unset.
func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV parses a comma separated string into a slice.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
