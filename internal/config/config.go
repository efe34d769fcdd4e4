package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// MetricsPort serves /metrics from the export worker.
	MetricsPort string

	// Seed source
	DataBackend  string
	SeedFile     string
	SQLiteDBPath string

	// Ledger
	UnderfundedPolicy string
	SummaryPayroll    decimal.Decimal
	SummaryVendors    decimal.Decimal
	SummaryCacheTTL   time.Duration

	// AMQP activity export; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets activity report
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	ExportBatchSize     int
	ExportFlushInterval time.Duration

	LogLevel string
}

var (
	validBackends = []string{"memory", "sqlite"}
	validPolicies = []string{"reject", "clamp"}
	validLevels   = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsPort:        getEnv("METRICS_PORT", "9091"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SeedFile:     getEnv("SEED_FILE", "./data/seed.yaml"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/runpay.db"),

		UnderfundedPolicy: getEnv("LEDGER_UNDERFUNDED_POLICY", "reject"),
		SummaryPayroll:    getEnvDecimal("SUMMARY_PAYROLL", decimal.NewFromInt(42000)),
		SummaryVendors:    getEnvDecimal("SUMMARY_VENDORS", decimal.NewFromInt(18500)),
		SummaryCacheTTL:   getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "runpay"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "activity_export"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Activity"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		ExportBatchSize:     getEnvInt("EXPORT_BATCH_SIZE", 10),
		ExportFlushInterval: getEnvDuration("EXPORT_FLUSH_INTERVAL", 5*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var result *multierror.Error

	if port, err := strconv.Atoi(c.Port); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		result = multierror.Append(result, fmt.Errorf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			result = multierror.Append(result, errors.New("SQLite database path cannot be empty when using sqlite backend"))
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					result = multierror.Append(result, fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.RateLimitPerMinute < 1 {
		result = multierror.Append(result, fmt.Errorf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(validPolicies, strings.ToLower(c.UnderfundedPolicy)) {
		result = multierror.Append(result, fmt.Errorf("invalid underfunded policy '%s': must be one of %v", c.UnderfundedPolicy, validPolicies))
	}
	if c.SummaryPayroll.IsNegative() || c.SummaryVendors.IsNegative() {
		result = multierror.Append(result, errors.New("summary figures cannot be negative"))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			result = multierror.Append(result, fmt.Errorf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			result = multierror.Append(result, errors.New("AMQP exchange name cannot be empty when AMQP URL is provided"))
		}
		if c.AMQPQueue == "" {
			result = multierror.Append(result, errors.New("AMQP queue name cannot be empty when AMQP URL is provided"))
		}
	}

	if c.ExportBatchSize < 1 {
		result = multierror.Append(result, fmt.Errorf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		result = multierror.Append(result, fmt.Errorf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}

	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		result = multierror.Append(result, fmt.Errorf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	return finish(result)
}

// ValidateWorker checks the settings the export worker needs on top of
// Validate: a broker to consume from and a sheet to append to.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}

	var result *multierror.Error
	if c.AMQPURL == "" {
		result = multierror.Append(result, errors.New("AMQP_URL is required for the export worker"))
	}
	if c.GoogleSpreadsheetID == "" {
		result = multierror.Append(result, errors.New("Google Spreadsheet ID is required for the export worker"))
	}
	if c.GoogleSheetName == "" {
		result = multierror.Append(result, errors.New("Google Sheet name is required for the export worker"))
	}

	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" {
		result = multierror.Append(result, errors.New("either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the export worker"))
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			result = multierror.Append(result, fmt.Errorf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if port, err := strconv.Atoi(c.MetricsPort); err != nil || port < 1 || port > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid metrics port '%s': must be between 1 and 65535", c.MetricsPort))
	}

	if c.ExportFlushInterval < 100*time.Millisecond {
		result = multierror.Append(result, fmt.Errorf("invalid export flush interval %v: must be at least 100ms", c.ExportFlushInterval))
	} else if c.ExportFlushInterval > time.Hour {
		result = multierror.Append(result, fmt.Errorf("invalid export flush interval %v: must be at most 1 hour", c.ExportFlushInterval))
	}

	return finish(result)
}

func finish(result *multierror.Error) error {
	if result == nil {
		return nil
	}
	result.ErrorFormat = func(errs []error) string {
		lines := make([]string, len(errs))
		for i, err := range errs {
			lines[i] = err.Error()
		}
		return "configuration validation failed:\n- " + strings.Join(lines, "\n- ")
	}
	return result.ErrorOrNil()
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

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
