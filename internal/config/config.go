package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the background task timeouts of a session
const (
	DefaultImageFetchTimeout = 15 * time.Second
	DefaultPredictTimeout    = 60 * time.Second
)

type Config struct {
	Host              string
	Port              string
	PredictBaseURL    string
	RequestTimeout    time.Duration
	ImageFetchTimeout time.Duration
	PredictTimeout    time.Duration
	MaxUploadSize     int64
	SessionTTL        time.Duration
	MaxSessions       int
	LogLevel          string
	AzureAccountName  string
	AzureAccountKey   string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob-backed file sources are configured.
func (c *Config) AzureEnabled() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

// LoadFromEnv reads the configuration once at startup.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:              getEnvOrDefault("HOST", "0.0.0.0"),
		Port:              getEnvOrDefault("PORT", "8080"),
		PredictBaseURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("PREDICT_API_BASE_URL")), "/"),
		RequestTimeout:    parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout: parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", DefaultImageFetchTimeout),
		PredictTimeout:    parseDurationOrDefault("PREDICT_TIMEOUT", DefaultPredictTimeout),
		MaxUploadSize:     parseIntOrDefault("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MiB
		SessionTTL:        parseDurationOrDefault("SESSION_TTL", 30*time.Minute),
		MaxSessions:       int(parseIntOrDefault("MAX_SESSIONS", 1024)),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		AzureAccountName:  os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:   os.Getenv("AZURE_STORAGE_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.PredictBaseURL == "" {
		return fmt.Errorf("PREDICT_API_BASE_URL is required")
	}
	u, err := url.Parse(c.PredictBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid PREDICT_API_BASE_URL: %q", c.PredictBaseURL)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0 (got %d)", c.MaxUploadSize)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be > 0 (got %d)", c.MaxSessions)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.PredictTimeout <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, predict=%s, session=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.PredictTimeout, c.SessionTTL)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
