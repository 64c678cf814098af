package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment represents the current runtime environment
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

// GetEnvironment determines the current environment from ENV.
func GetEnvironment() Environment {
	switch os.Getenv("ENV") {
	case "production":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

// IsProduction returns true if the current environment is production
func IsProduction() bool {
	return GetEnvironment() == Production
}

// ValidateConfig checks that every value the pipeline cannot run without is
// present. Credentials are only enforced in production so that tests and
// local development can run against fakes.
func ValidateConfig(cfg *Config) error {
	var missing []string

	if cfg.ServerPort == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if cfg.DBHost == "" {
		missing = append(missing, "DB_HOST")
	}
	if cfg.DBName == "" {
		missing = append(missing, "DB_NAME")
	}

	if IsProduction() {
		if cfg.DBPassword == "" {
			missing = append(missing, "DB_PASSWORD")
		}
		if cfg.VisionAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if cfg.NutritionixAppID == "" {
			missing = append(missing, "NUTRITIONIX_APP_ID")
		}
		if cfg.NutritionixAppKey == "" {
			missing = append(missing, "NUTRITIONIX_APP_KEY")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
