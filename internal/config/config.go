package config

import (
	"crypto/sha256"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL     string        `validate:"required,url"`
	BackendTimeout time.Duration `validate:"gte=0"`
	Port           string        `validate:"required,numeric"`
	SessionSecret  string        `validate:"required"`
	CSRFKey        []byte        `validate:"len=32"`
	SecureCookies  bool
	DatabaseURL    string
	Debug          bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: Failed to load .env: %v", err)
	}

	cfg := &Config{
		BackendURL:     getEnv("BACKEND_URL", "http://localhost:5000"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 0),
		Port:           getEnv("PORT", "3000"),
		SessionSecret:  getEnv("SESSION_SECRET", "change-this-to-a-random-secret-in-production"),
		SecureCookies:  getEnvBool("SECURE_COOKIES", false),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		Debug:          getEnvBool("DEBUG", false),
	}
	cfg.CSRFKey = csrfKey(getEnv("CSRF_KEY", ""), cfg.SessionSecret)
	return cfg
}

// Validate checks the loaded values before the server starts.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// AuditEnabled reports whether exports should be recorded in Postgres.
func (c *Config) AuditEnabled() bool {
	return c.DatabaseURL != ""
}

// Debugf logs a formatted message only when DEBUG is enabled
func (c *Config) Debugf(format string, v ...interface{}) {
	if c.Debug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// csrfKey uses CSRF_KEY when it is exactly 32 bytes, otherwise derives a key
// from the session secret so a single secret is enough for development.
func csrfKey(explicit, secret string) []byte {
	if len(explicit) == 32 {
		return []byte(explicit)
	}
	if explicit != "" {
		log.Printf("WARNING: CSRF_KEY must be 32 bytes, deriving it from SESSION_SECRET")
	}
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Printf("WARNING: Invalid duration for %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}
