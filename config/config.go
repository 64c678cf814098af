package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Vision AI collaborator
	VisionAPIKey string
	VisionAPIURL string
	VisionModel  string

	// Nutrition provider (Nutritionix)
	NutritionixAppID  string
	NutritionixAppKey string
	NutritionixAPIURL string

	// Pipeline tuning
	ResolveConcurrency int
	ResolveTimeout     time.Duration
}

// LoadConfig builds a Config from environment variables. API keys may be
// supplied directly or through *_FILE secret files.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getSecret("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "foodiedie"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getSecret("REDIS_PASSWORD"),

		VisionAPIKey: getSecret("OPENAI_API_KEY"),
		VisionAPIURL: getEnv("OPENAI_VISION_API_URL", "https://api.openai.com/v1/chat/completions"),
		VisionModel:  getEnv("OPENAI_VISION_MODEL", "gpt-4o"),

		NutritionixAppID:  getSecret("NUTRITIONIX_APP_ID"),
		NutritionixAppKey: getSecret("NUTRITIONIX_APP_KEY"),
		NutritionixAPIURL: getEnv("NUTRITIONIX_API_URL", "https://trackapi.nutritionix.com/v2/natural/nutrients"),

		ResolveConcurrency: 4,
		ResolveTimeout:     20 * time.Second,
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", db, err)
		}
		cfg.RedisDB = n
	}
	if v := os.Getenv("RESOLVE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid RESOLVE_CONCURRENCY %q", v)
		}
		cfg.ResolveConcurrency = n
	}
	if v := os.Getenv("RESOLVE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RESOLVE_TIMEOUT %q: %w", v, err)
		}
		cfg.ResolveTimeout = d
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable or a default.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getSecret reads KEY from the environment, falling back to the file named
// by KEY_FILE (Docker secrets convention).
func getSecret(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}
