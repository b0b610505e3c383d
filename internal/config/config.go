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

	"github.com/Rhymond/go-money"

	"rendita/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string
	DataDir     string

	// SQLite
	SQLiteDBPath string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// AMQP change feed
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets (backend and mirror target)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AI analysis
	GeminiAPIKey     string
	GeminiModel      string
	AnalysisCacheTTL time.Duration

	// Display and projection
	Currency       string
	DefaultHorizon int

	// Worker
	MirrorInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	validBackends   = []string{"memory", "sqlite", "mongo", "sheets"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/rendita.db"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "rendita"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "rendita"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_portfolio"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Portfolio"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AnalysisCacheTTL: getEnvDuration("ANALYSIS_CACHE_TTL", 10*time.Minute),

		Currency:       strings.ToUpper(getEnv("CURRENCY", core.DefaultCurrency)),
		DefaultHorizon: getEnvInt("DEFAULT_HORIZON", core.DefaultHorizon),

		MirrorInterval: getEnvDuration("MIRROR_INTERVAL", 5*time.Minute),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	return cfg
}

// AMQPEnabled reports whether the change feed should be wired.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// AnalysisEnabled reports whether a real analyzer can be built.
func (c *Config) AnalysisEnabled() bool {
	return c.GeminiAPIKey != ""
}

// HasGoogleCredentials reports whether a service account is configured.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "mongo" {
		if parsedURL, err := url.Parse(c.MongoURI); err != nil || c.MongoURI == "" {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI '%s'", c.MongoURI))
		} else if parsedURL.Scheme != "mongodb" && parsedURL.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", parsedURL.Scheme))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
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

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if !c.HasGoogleCredentials() {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.GeminiAPIKey != "" && c.GeminiModel == "" {
		errors = append(errors, "Gemini model cannot be empty when GEMINI_API_KEY is provided")
	}
	if c.AnalysisCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid analysis cache TTL %v: must not be negative", c.AnalysisCacheTTL))
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency '%s'", c.Currency))
	}

	if !core.IsHorizon(c.DefaultHorizon) {
		errors = append(errors, fmt.Sprintf("invalid default horizon %d: must be one of %v", c.DefaultHorizon, core.Horizons))
	}

	if c.MirrorInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
	} else if c.MirrorInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at most 24 hours", c.MirrorInterval))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
