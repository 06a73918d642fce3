package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSystemUserID owns every recipe created by the recommendation pipeline
// unless SYSTEM_USER_ID overrides it.
const DefaultSystemUserID = "00000000-0000-0000-0000-000000000001"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort  string
	ServerHost  string
	CORSOrigins []string

	// Database configuration
	DBDriver   string
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
	RedisURL      string

	// JWT configuration
	JWTSecret string

	// Text model
	AIAPIKey  string
	AIAPIURL  string
	AIModel   string
	AITimeout time.Duration

	// Image model and object storage
	ImageAPIKey     string
	ImageAPIURL     string
	ImageModel      string
	ImageSize       string
	ImageWorkers    int
	ImageQueueSize  int
	ImageMaxRetries int
	S3BucketName    string
	AWSRegion       string

	// Recommendation pipeline
	SystemUserID      uuid.UUID
	RecommendTimeout  time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration

	LogLevel string
}

// sensitive keys may also be provided as Docker secrets
var secretKeys = []string{
	"db_user",
	"db_password",
	"jwt_secret",
	"redis_password",
	"ai_api_key",
	"image_api_key",
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	// A local .env file is only honoured in development
	if env == Development {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	// Docker secrets override plain environment variables outside CI
	if env != CI {
		for _, name := range secretKeys {
			if value := readSecret(name); value != "" {
				v.Set(name, value)
			}
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("cors_origins", "http://localhost:5173")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "yoribogo")
	v.SetDefault("db_ssl_mode", "disable")

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_db", 0)

	v.SetDefault("ai_api_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("ai_model", "gpt-4o-mini")
	v.SetDefault("ai_timeout", "30s")

	v.SetDefault("image_api_url", "https://api.openai.com/v1/images/generations")
	v.SetDefault("image_model", "dall-e-3")
	v.SetDefault("image_size", "1024x1024")
	v.SetDefault("image_workers", 2)
	v.SetDefault("image_queue_size", 64)
	v.SetDefault("image_max_retries", 3)
	v.SetDefault("s3_bucket_name", "yoribogo-recipe-images")
	v.SetDefault("aws_region", "ap-northeast-2")

	v.SetDefault("system_user_id", DefaultSystemUserID)
	v.SetDefault("recommend_timeout", "60s")
	v.SetDefault("rate_limit_requests", 10)
	v.SetDefault("rate_limit_window", "1m")

	v.SetDefault("log_level", "info")
}

func fromViper(v *viper.Viper) (*Config, error) {
	systemUserID, err := uuid.Parse(v.GetString("system_user_id"))
	if err != nil {
		return nil, ValidationError{Field: "SYSTEM_USER_ID", Message: err.Error()}
	}

	return &Config{
		ServerPort:  v.GetString("server_port"),
		ServerHost:  v.GetString("server_host"),
		CORSOrigins: splitList(v.GetString("cors_origins")),

		DBDriver:   v.GetString("db_driver"),
		DBHost:     v.GetString("db_host"),
		DBPort:     v.GetString("db_port"),
		DBUser:     v.GetString("db_user"),
		DBPassword: v.GetString("db_password"),
		DBName:     v.GetString("db_name"),
		DBSSLMode:  v.GetString("db_ssl_mode"),

		RedisHost:     v.GetString("redis_host"),
		RedisPort:     v.GetString("redis_port"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		RedisURL:      v.GetString("redis_url"),

		JWTSecret: v.GetString("jwt_secret"),

		AIAPIKey:  v.GetString("ai_api_key"),
		AIAPIURL:  v.GetString("ai_api_url"),
		AIModel:   v.GetString("ai_model"),
		AITimeout: v.GetDuration("ai_timeout"),

		ImageAPIKey:     v.GetString("image_api_key"),
		ImageAPIURL:     v.GetString("image_api_url"),
		ImageModel:      v.GetString("image_model"),
		ImageSize:       v.GetString("image_size"),
		ImageWorkers:    v.GetInt("image_workers"),
		ImageQueueSize:  v.GetInt("image_queue_size"),
		ImageMaxRetries: v.GetInt("image_max_retries"),
		S3BucketName:    v.GetString("s3_bucket_name"),
		AWSRegion:       v.GetString("aws_region"),

		SystemUserID:      systemUserID,
		RecommendTimeout:  v.GetDuration("recommend_timeout"),
		RateLimitRequests: v.GetInt("rate_limit_requests"),
		RateLimitWindow:   v.GetDuration("rate_limit_window"),

		LogLevel: v.GetString("log_level"),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

// DSN builds the connection string for the configured SQL database
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBName
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
