package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadENV loads the environment variables from .env when GO_ENV is unset or
// set to development.
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Single admin account
	ADMIN_USERNAME      string
	ADMIN_PASSWORD_HASH string
	// Redis Configuration
	REDIS_URL string
	// Mistral Configuration
	MISTRAL_API_KEY string
	MISTRAL_MODEL   string
	// Pipeline tuning
	PIPELINE_WORKERS        int
	PIPELINE_QUEUE_SIZE     int
	JOB_TIMEOUT_MINUTES     int
	COMPLETION_SEPARATOR    string
	ANALYSIS_RETENTION_DAYS int
	// Server
	CRON_ENABLED    bool
	ALLOWED_ORIGINS string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Admin
		ADMIN_USERNAME:      os.Getenv("ADMIN_USERNAME"),
		ADMIN_PASSWORD_HASH: os.Getenv("ADMIN_PASSWORD_HASH"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Mistral
		MISTRAL_API_KEY: os.Getenv("MISTRAL_API_KEY"),
		MISTRAL_MODEL:   os.Getenv("MISTRAL_MODEL"),
		// Pipeline
		PIPELINE_WORKERS:        intEnv("PIPELINE_WORKERS", 2),
		PIPELINE_QUEUE_SIZE:     intEnv("PIPELINE_QUEUE_SIZE", 64),
		JOB_TIMEOUT_MINUTES:     intEnv("JOB_TIMEOUT_MINUTES", 10),
		COMPLETION_SEPARATOR:    os.Getenv("COMPLETION_SEPARATOR"),
		ANALYSIS_RETENTION_DAYS: intEnv("ANALYSIS_RETENTION_DAYS", 365),
		// Server
		CRON_ENABLED:    os.Getenv("CRON_ENABLED") != "false", // default to enabled
		ALLOWED_ORIGINS: allowedOrigins,
	}

	return envVariables, nil
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
