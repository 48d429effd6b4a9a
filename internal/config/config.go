// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// BaseURL is the public base URL used to build guest registration links.
	// Defaults to "http://localhost:8080".
	BaseURL string

	// FeedURL is the ICS calendar feed of the external booking channel.
	// Optional: when empty the poller does not start and reconciliation
	// reports empty results.
	FeedURL string

	// FeedPollInterval is how often the background poller refetches the
	// feed. Defaults to 30m. Go duration syntax ("30m", "1h").
	FeedPollInterval time.Duration

	// FeedStaleAfter is the cache age past which fetch failures are logged
	// at warn instead of info. Defaults to 6h.
	FeedStaleAfter time.Duration

	// PropertyTimezone is the IANA zone the property lives in; timestamped
	// feed entries are converted into it before being reduced to civil
	// dates. Defaults to "UTC".
	PropertyTimezone *time.Location

	// AccessGraceDays extends door credentials that many days past
	// check-out. Defaults to 1.
	AccessGraceDays int

	// PreArrivalWindowDays opens credential disclosure that many days
	// before check-in. Defaults to 3.
	PreArrivalWindowDays int
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or
// describing the first malformed optional value.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FeedURL:     os.Getenv("FEED_URL"),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.FeedPollInterval, err = getDuration("FEED_POLL_INTERVAL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.FeedStaleAfter, err = getDuration("FEED_STALE_AFTER", 6*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PropertyTimezone, err = getLocation("PROPERTY_TIMEZONE", time.UTC); err != nil {
		return Config{}, err
	}
	if cfg.AccessGraceDays, err = getInt("ACCESS_GRACE_DAYS", 1); err != nil {
		return Config{}, err
	}
	if cfg.PreArrivalWindowDays, err = getInt("PRE_ARRIVAL_WINDOW_DAYS", 3); err != nil {
		return Config{}, err
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

// getDuration parses an optional duration variable in Go syntax ("30m").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// getInt parses an optional integer variable.
func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getLocation parses an optional IANA timezone name ("Europe/Madrid").
func getLocation(key string, fallback *time.Location) (*time.Location, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return loc, nil
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
