package config

import (
	"fmt"
	"os"
	"time"

	"github.com/listpal/listpal/internal/backup"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	JWTSecret string
	TokenTTL  time.Duration

	EmailServerToken string
	EmailFrom        string

	Backup backup.Config
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnvOrDefault("LISTPAL_PORT", "8080"),
		DBPath:           getEnvOrDefault("LISTPAL_DB_PATH", "listpal.db"),
		LogLevel:         getEnvOrDefault("LISTPAL_LOG_LEVEL", "info"),
		TokenTTL:         24 * time.Hour,
		EmailServerToken: os.Getenv("LISTPAL_POSTMARK_TOKEN"),
		EmailFrom:        getEnvOrDefault("LISTPAL_EMAIL_FROM", "no-reply@listpal.app"),
	}

	if cfg.JWTSecret = os.Getenv("LISTPAL_JWT_SECRET"); cfg.JWTSecret == "" {
		return nil, fmt.Errorf("LISTPAL_JWT_SECRET environment variable is required")
	}

	cfg.Backup = backup.Config{
		DBPath:     cfg.DBPath,
		Passphrase: os.Getenv("LISTPAL_BACKUP_PASSPHRASE"),
		Interval:   24 * time.Hour,
		S3: backup.S3Config{
			Endpoint:  os.Getenv("LISTPAL_S3_ENDPOINT"),
			Bucket:    os.Getenv("LISTPAL_S3_BUCKET"),
			Region:    getEnvOrDefault("LISTPAL_S3_REGION", "auto"),
			AccessKey: os.Getenv("LISTPAL_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("LISTPAL_S3_SECRET_KEY"),
		},
	}
	if iv := os.Getenv("LISTPAL_BACKUP_INTERVAL"); iv != "" {
		d, err := time.ParseDuration(iv)
		if err != nil {
			return nil, fmt.Errorf("invalid LISTPAL_BACKUP_INTERVAL: %w", err)
		}
		cfg.Backup.Interval = d
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
