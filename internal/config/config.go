package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSheets = "sheets"
	BackendForm   = "form"
	BackendSQLite = "sqlite"
)

var (
	validBackends       = []string{BackendMemory, BackendFile, BackendSheets, BackendForm, BackendSQLite}
	validMirrorBackends = []string{BackendSheets, BackendForm, BackendFile}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validLogFormats     = []string{"text", "json"}
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend   string
	MirrorBackend string

	// Flat file
	DataFile string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID    string
	GoogleSheetName        string
	GoogleCredentialsJSON  string
	GoogleCredentialsFile  string
	GoogleSheetTimestamped bool

	// Form endpoint
	FormID          string
	FormFieldDate   string
	FormFieldCat    string
	FormFieldDesc   string
	FormFieldAmount string
	FormFieldPayer  string
	FormFieldPay    string
	SheetCSVURL     string
	FormVerify      bool

	// Dashboard
	BudgetFile string
	CacheTTL   time.Duration

	// Auth
	AppPassword   string
	SessionSecret string
	SecureCookies bool

	// HTTP edge
	TrustedProxies     []string
	RateLimitPerMinute int
	// Timezone names the zone "today" is computed in; empty means local.
	Timezone string

	// Logging
	LogLevel  string
	LogFormat string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		MirrorBackend: getEnv("MIRROR_BACKEND", BackendSheets),

		DataFile:     getEnv("DATA_FILE", "./data/gastos.csv"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gastos.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gastos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_expenses"),

		GoogleSpreadsheetID:    getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:        getEnv("GOOGLE_SHEET_NAME", "Gastos"),
		GoogleCredentialsJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleSheetTimestamped: getEnvBool("GOOGLE_SHEET_TIMESTAMPED", false),

		FormID:          getEnv("FORM_ID", ""),
		FormFieldDate:   getEnv("FORM_FIELD_DATE", ""),
		FormFieldCat:    getEnv("FORM_FIELD_CATEGORY", ""),
		FormFieldDesc:   getEnv("FORM_FIELD_DESCRIPTION", ""),
		FormFieldAmount: getEnv("FORM_FIELD_AMOUNT", ""),
		FormFieldPayer:  getEnv("FORM_FIELD_PAYER", ""),
		FormFieldPay:    getEnv("FORM_FIELD_PAYMENT", ""),
		SheetCSVURL:     getEnv("SHEET_CSV_URL", ""),
		FormVerify:      getEnvBool("FORM_VERIFY", false),

		BudgetFile: getEnv("BUDGET_FILE", ""),
		CacheTTL:   getEnvDuration("CACHE_TTL", 60*time.Second),

		AppPassword:   getEnv("APP_PASSWORD", ""),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SecureCookies: getEnvBool("SECURE_COOKIES", false),

		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		Timezone:           getEnv("APP_TIMEZONE", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 50),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error listing every
// problem found.
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

	switch c.DataBackend {
	case BackendFile:
		if c.DataFile == "" {
			errors = append(errors, "DATA_FILE cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	case BackendForm:
		errors = append(errors, c.validateForm()...)
	}

	// Validate AMQP URL if provided
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

	if c.AppPassword != "" && len(c.SessionSecret) < 16 {
		errors = append(errors, "SESSION_SECRET must be at least 16 characters when APP_PASSWORD is set")
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid APP_TIMEZONE '%s': %v", c.Timezone, err))
		}
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateMirror checks the settings the worker needs on top of Validate.
func (c *Config) ValidateMirror() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required by the worker")
	}
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLITE_DB_PATH is required by the worker")
	}
	switch c.MirrorBackend {
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	case BackendForm:
		errors = append(errors, c.validateForm()...)
	case BackendFile:
		if c.DataFile == "" {
			errors = append(errors, "DATA_FILE cannot be empty when mirroring to a file")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validMirrorBackends))
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when using sheets backend")
	}
	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
		}
	}
	return errors
}

func (c *Config) validateForm() []string {
	var errors []string
	if c.FormID == "" {
		errors = append(errors, "FORM_ID is required when using form backend")
	}
	fields := map[string]string{
		"FORM_FIELD_DATE":        c.FormFieldDate,
		"FORM_FIELD_CATEGORY":    c.FormFieldCat,
		"FORM_FIELD_DESCRIPTION": c.FormFieldDesc,
		"FORM_FIELD_AMOUNT":      c.FormFieldAmount,
		"FORM_FIELD_PAYER":       c.FormFieldPayer,
		"FORM_FIELD_PAYMENT":     c.FormFieldPay,
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if fields[k] == "" {
			errors = append(errors, fmt.Sprintf("%s is required when using form backend", k))
		}
	}
	if c.SheetCSVURL == "" && c.GoogleSpreadsheetID == "" {
		errors = append(errors, "either SHEET_CSV_URL or GOOGLE_SPREADSHEET_ID must be provided to read the form's sheet")
	}
	if c.SheetCSVURL != "" {
		if u, err := url.Parse(c.SheetCSVURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid SHEET_CSV_URL '%s': must be an http(s) URL", c.SheetCSVURL))
		}
	}
	return errors
}

// Location returns the configured time zone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
