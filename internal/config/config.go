// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// JWTSecret is the HMAC key shared with the identity provider. Required.
	JWTSecret string

	// LogLevel controls the minimum log level. Defaults to "info".
	LogLevel string

	// LogFormat is "json" (default) or "text" for colored local output.
	LogFormat string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	CORSOrigins []string

	// MaxBodyBytes caps request bodies, image uploads included. Defaults to 10 MiB.
	MaxBodyBytes int64

	// MigrateOnStart applies pending migrations before serving.
	MigrateOnStart bool

	// TxMaxRetries is the retry budget for optimistic roster writes. Defaults to 5.
	TxMaxRetries uint64

	Storage StorageConfig
	Mail    MailConfig
}

// StorageConfig selects and addresses the object store. An empty Endpoint
// selects the local disk store rooted at Dir.
type StorageConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	PublicURL string
	Dir       string
}

// MailConfig configures outbound email. An empty APIKey logs instead of sending.
// BaseURL overrides the Resend API location, for proxies and local fakes.
type MailConfig struct {
	APIKey  string
	BaseURL string
	From    string
}

// LoadDotEnv copies variables from the given .env files into the environment
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config.LoadDotEnv: %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or any
// that cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		Storage: StorageConfig{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			Bucket:    getEnv("STORAGE_BUCKET", "campus-uploads"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			PublicURL: os.Getenv("STORAGE_PUBLIC_URL"),
			Dir:       getEnv("STORAGE_DIR", "./uploads"),
		},
		Mail: MailConfig{
			APIKey:  os.Getenv("RESEND_API_KEY"),
			BaseURL: os.Getenv("RESEND_BASE_URL"),
			From:    getEnv("MAIL_FROM", "Campus Rides <rides@notifications.campusride.app>"),
		},
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	var err error
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "10485760"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		invalid = append(invalid, "MAX_BODY_BYTES")
	}
	if cfg.MigrateOnStart, err = strconv.ParseBool(getEnv("MIGRATE_ON_START", "false")); err != nil {
		invalid = append(invalid, "MIGRATE_ON_START")
	}
	if cfg.Storage.UseSSL, err = strconv.ParseBool(getEnv("STORAGE_USE_SSL", "true")); err != nil {
		invalid = append(invalid, "STORAGE_USE_SSL")
	}
	if cfg.TxMaxRetries, err = strconv.ParseUint(getEnv("TX_MAX_RETRIES", "5"), 10, 64); err != nil {
		invalid = append(invalid, "TX_MAX_RETRIES")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
