package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/api"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
)

type Config struct {
	// HTTP Server
	Port           string
	MaxUploadBytes int64

	LogLevel string

	// Rate source
	RateSourceURL    string
	RateLookbackDays int
	RateHTTPTimeout  time.Duration
	RateMaxRetries   int
	// Empty disables the on-disk rate archive
	RateArchivePath string

	// Google Sheets
	GoogleKeyPath            string
	GoogleServiceAccountJSON string

	// Environment values that could not be parsed; reported by Validate
	parseErrors []string
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory when one exists
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		RateSourceURL:   getEnv("RATE_SOURCE_URL", api.NBGBaseURL),
		RateArchivePath: getEnv("RATE_ARCHIVE_PATH", ""),

		GoogleKeyPath:            getEnv("GOOGLE_KEY_PATH", "service_account.json"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
	}
	c.MaxUploadBytes = int64(c.getEnvInt("MAX_UPLOAD_BYTES", 5<<20))
	c.RateLookbackDays = c.getEnvInt("RATE_LOOKBACK_DAYS", 7)
	c.RateHTTPTimeout = c.getEnvDuration("RATE_HTTP_TIMEOUT", 10*time.Second)
	c.RateMaxRetries = c.getEnvInt("RATE_MAX_RETRIES", 3)

	return c
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errors := append([]string(nil), c.parseErrors...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	if level := logger.Level(strings.ToUpper(strings.TrimSpace(c.LogLevel))); logger.ParseLevel(c.LogLevel) != level {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of DEBUG, INFO, WARN, ERROR, FATAL", c.LogLevel))
	}

	if parsedURL, err := url.Parse(c.RateSourceURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rate source URL '%s': %v", c.RateSourceURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid rate source URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.RateLookbackDays < 1 || c.RateLookbackDays > 31 {
		errors = append(errors, fmt.Sprintf("invalid rate lookback %d: must be between 1 and 31 days", c.RateLookbackDays))
	}

	if c.RateHTTPTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid rate HTTP timeout %v: must be at least 100ms", c.RateHTTPTimeout))
	}

	if c.RateMaxRetries < 0 || c.RateMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid rate max retries %d: must be between 0 and 10", c.RateMaxRetries))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasSheetsCredentials reports whether shared sheets can be read
func (c *Config) HasSheetsCredentials() bool {
	if strings.TrimSpace(c.GoogleServiceAccountJSON) != "" {
		return true
	}
	_, err := os.Stat(c.GoogleKeyPath)
	return c.GoogleKeyPath != "" && err == nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("invalid %s '%s': must be a whole number", key, value))
		return defaultValue
	}
	return i
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("invalid %s '%s': must be a duration such as 10s", key, value))
		return defaultValue
	}
	return d
}
