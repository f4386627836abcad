package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config carries the process-level settings, read from AUDIT_-prefixed
// environment variables (a .env file is loaded by the caller).
type Config struct {
	Port        int
	StorageRoot string
	AuditToken  string
	LogLevel    string
	LogFormat   string
}

func Load() *Config {
	cfg := &Config{
		Port:        8080,
		StorageRoot: "storage",
		AuditToken:  os.Getenv("AUDIT_TOKEN"),
		LogLevel:    getEnv("AUDIT_LOG_LEVEL", "info"),
		LogFormat:   getEnv("AUDIT_LOG_FORMAT", "text"),
	}

	if port := os.Getenv("AUDIT_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Port = parsed
		}
	}
	if root := os.Getenv("AUDIT_STORAGE_ROOT"); root != "" {
		cfg.StorageRoot = root
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// InitDB opens the postgres connection from DATABASE_URL or the discrete
// DB_* variables.
func InitDB() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "omr_audit"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}
