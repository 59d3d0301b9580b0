package config

import (
	"os"
	"strings"
)

type AppConfig struct {
	HTTPAddr     string
	RedisAddr    string
	RedisPass    string
	KafkaBrokers []string
	KafkaTopic   string

	// Extra expense statuses treated as paid, e.g. "reimbursed".
	ExpensePaidStatuses []string
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8031"),
		RedisAddr:           getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:           getEnv("REDIS_PASS", ""),
		KafkaBrokers:        getEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "finance.record.events"),
		ExpensePaidStatuses: getEnvSlice("EXPENSE_PAID_STATUSES", nil),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
