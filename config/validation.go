package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requiredFields lists the settings that must be non-empty for each environment
var requiredFields = map[Environment][]string{
	Development: {"SERVER_PORT", "DB_DRIVER", "DB_NAME"},
	Test:        {"SERVER_PORT", "DB_DRIVER", "DB_NAME"},
	CI:          {"SERVER_PORT", "DB_DRIVER", "DB_NAME", "DB_PASSWORD", "JWT_SECRET"},
	Production: {
		"SERVER_PORT",
		"DB_DRIVER",
		"DB_HOST",
		"DB_NAME",
		"DB_PASSWORD",
		"JWT_SECRET",
		"AI_API_KEY",
		"IMAGE_API_KEY",
		"S3_BUCKET_NAME",
		"AWS_REGION",
	},
}

func fieldValue(cfg *Config, field string) string {
	switch field {
	case "SERVER_PORT":
		return cfg.ServerPort
	case "DB_DRIVER":
		return cfg.DBDriver
	case "DB_HOST":
		return cfg.DBHost
	case "DB_NAME":
		return cfg.DBName
	case "DB_PASSWORD":
		return cfg.DBPassword
	case "JWT_SECRET":
		return cfg.JWTSecret
	case "AI_API_KEY":
		return cfg.AIAPIKey
	case "IMAGE_API_KEY":
		return cfg.ImageAPIKey
	case "S3_BUCKET_NAME":
		return cfg.S3BucketName
	case "AWS_REGION":
		return cfg.AWSRegion
	}
	return ""
}

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()

	var errors []string

	for _, field := range requiredFields[env] {
		if fieldValue(cfg, field) == "" {
			errors = append(errors, ValidationError{Field: field, Message: "is required"}.Error())
		}
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		errors = append(errors, ValidationError{Field: "DB_DRIVER", Message: "must be postgres or sqlite"}.Error())
	}

	if cfg.RecommendTimeout <= 0 {
		errors = append(errors, ValidationError{Field: "RECOMMEND_TIMEOUT", Message: "must be positive"}.Error())
	}
	if cfg.ImageWorkers < 1 {
		errors = append(errors, ValidationError{Field: "IMAGE_WORKERS", Message: "must be at least 1"}.Error())
	}
	if cfg.ImageQueueSize < 1 {
		errors = append(errors, ValidationError{Field: "IMAGE_QUEUE_SIZE", Message: "must be at least 1"}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
