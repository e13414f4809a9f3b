package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all configuration for the pickup service.
type Config struct {
	Port              string
	Env               string
	RedisURL          string
	KafkaBrokers      []string
	PickupEventsTopic string
	UserServiceURL    string
	SLAWindow         time.Duration
	SweepInterval     time.Duration
	HierarchyCacheTTL time.Duration
}

// LoadConfig loads environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8086"),
		Env:               getEnv("ENV", "development"),
		RedisURL:          os.Getenv("REDIS_URL"),
		PickupEventsTopic: getEnv("PICKUP_EVENTS_TOPIC", "pickup.events"),
		UserServiceURL:    getEnv("USER_SERVICE_URL", "http://user-service:8081"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	cfg.SLAWindow, err = parseDuration("PICKUP_SLA_WINDOW", 48*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval, err = parseDuration("SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.HierarchyCacheTTL, err = parseDuration("HIERARCHY_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	if cfg.SLAWindow <= 0 {
		return nil, fmt.Errorf("PICKUP_SLA_WINDOW must be positive")
	}
	if cfg.UserServiceURL == "" {
		return nil, fmt.Errorf("USER_SERVICE_URL is required")
	}

	return cfg, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
