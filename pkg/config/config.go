package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string

	FirebaseProject            string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string

	AllowedOrigins    []string
	ProductSource     string
	ProductAPIBaseURL string

	StoreDriver  string
	StoreTimeout time.Duration

	RedisAddr    string
	RedisChannel string

	KafkaBrokers []string
	KafkaTopic   string

	SendRatePerMinute int
	SendRateBurst     int
	RestRatePerMinute int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:                 getEnv("SERVER_PORT", "8080"),
		Environment:                getEnv("ENVIRONMENT", "development"),
		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		AllowedOrigins:             splitAndTrim(getEnv("ALLOWED_ORIGIN", "http://localhost:5173")),
		ProductSource:              strings.ToLower(getEnv("PRODUCT_SOURCE", "http")),
		ProductAPIBaseURL:          strings.TrimRight(getEnv("PRODUCT_API_BASE_URL", "http://localhost:3000/api"), "/"),
		StoreDriver:                strings.ToLower(getEnv("STORE_DRIVER", "firestore")),
		RedisAddr:                  getEnv("REDIS_ADDR", ""),
		RedisChannel:               getEnv("REDIS_CHANNEL", "fuddly:deliveries"),
		KafkaBrokers:               splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:                 getEnv("KAFKA_TOPIC", "chat.messages"),
		SendRatePerMinute:          getEnvAsInt("SEND_RATE_PER_MINUTE", 60),
		SendRateBurst:              getEnvAsInt("SEND_RATE_BURST", 10),
		RestRatePerMinute:          getEnvAsInt("REST_RATE_PER_MINUTE", 600),
	}

	timeout, err := getEnvAsDuration("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	config.StoreTimeout = timeout

	switch config.StoreDriver {
	case "firestore":
		if config.FirebaseProject == "" {
			return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore store driver")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", config.StoreDriver)
	}

	switch config.ProductSource {
	case "http":
	case "firestore":
		if config.StoreDriver != "firestore" {
			return nil, fmt.Errorf("PRODUCT_SOURCE=firestore requires STORE_DRIVER=firestore")
		}
	default:
		return nil, fmt.Errorf("unknown PRODUCT_SOURCE %q", config.ProductSource)
	}

	if config.SendRatePerMinute <= 0 || config.SendRateBurst <= 0 || config.RestRatePerMinute <= 0 {
		return nil, fmt.Errorf("SEND_RATE_PER_MINUTE, SEND_RATE_BURST and REST_RATE_PER_MINUTE must be positive")
	}

	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
