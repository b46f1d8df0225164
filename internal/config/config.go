package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Collaborator
	APIBaseURL string
	APITimeout time.Duration
	ClientID   int64

	// HTTP Server
	Port               string
	CORSOrigins        []string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string
	SeedDir      string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string

	SummaryCacheSize int
}

var validBackends = []string{"memory", "sqlite"}

var defaults = map[string]any{
	"API_BASE_URL":          "http://localhost:8080/api",
	"API_TIMEOUT":           "10s",
	"CLIENT_ID":             "1",
	"PORT":                  "8080",
	"CORS_ORIGINS":          "http://localhost:3000",
	"RATE_LIMIT_PER_MINUTE": "120",
	"DATA_BACKEND":          "memory",
	"SQLITE_DB_PATH":        "./data/expresso.db",
	"SEED_DIR":              "",
	"AMQP_URL":              "",
	"AMQP_EXCHANGE":         "expresso",
	"AMQP_QUEUE":            "ledger_events",
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "text",
	"SUMMARY_CACHE_SIZE":    "64",
}

// Load reads the configuration from the environment. Unparseable numbers and
// durations fall back to their defaults.
func Load() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	return &Config{
		APIBaseURL: v.GetString("API_BASE_URL"),
		APITimeout: getDuration(v, "API_TIMEOUT"),
		ClientID:   int64(getInt(v, "CLIENT_ID")),

		Port:               v.GetString("PORT"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		RateLimitPerMinute: getInt(v, "RATE_LIMIT_PER_MINUTE"),

		DataBackend:  strings.ToLower(v.GetString("DATA_BACKEND")),
		SQLiteDBPath: v.GetString("SQLITE_DB_PATH"),
		SeedDir:      v.GetString("SEED_DIR"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),

		SummaryCacheSize: getInt(v, "SUMMARY_CACHE_SIZE"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': must be an absolute http(s) URL", c.APIBaseURL))
	}
	if c.APITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	} else if c.APITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at most 5 minutes", c.APITimeout))
	}
	if c.ClientID < 1 {
		errors = append(errors, fmt.Sprintf("invalid client id %d: must be positive", c.ClientID))
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}
	if c.SeedDir != "" {
		if info, err := os.Stat(c.SeedDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("seed directory '%s' does not exist", c.SeedDir))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getInt(v *viper.Viper, key string) int {
	if i, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err == nil {
		return i
	}
	i, _ := strconv.Atoi(defaults[key].(string))
	return i
}

func getDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key))); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaults[key].(string))
	return d
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
