package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultBases lists the store locations in display order.
var DefaultBases = []string{"神戸", "横浜", "大宮", "泉北", "千葉"}

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Inventory InventoryConfig
	Auth      AuthConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Notify    NotifyConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// InventoryConfig locates the record files and names the bases that own them.
type InventoryConfig struct {
	DataDir string
	Bases   []string
}

// AuthConfig holds the shared password gate settings.
type AuthConfig struct {
	Password       string
	PasswordHash   string
	SessionSecret  string
	SessionTTL     time.Duration
	LoginPerMinute int
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// MongoDBConfig holds settings for MongoDB. An empty URI disables snapshot storage.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to mirror the movement log to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	LogRange        string
}

// Enabled reports whether both credentials and a spreadsheet are configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// NotifyConfig holds the outbound webhook used for daily reports.
type NotifyConfig struct {
	WebhookURL string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string
	Development bool
}

// Load reads the configuration and validates it for the web server.
func Load(envFile string) (*Config, error) {
	cfg, err := Read(envFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read reads environment variables (optionally from the provided file) and
// materializes a Config instance without validating the login settings.
func Read(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	ttl, err := time.ParseDuration(getenvWithDefault("SESSION_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("parse SESSION_TTL: %w", err)
	}

	perMinute, err := strconv.Atoi(getenvWithDefault("LOGIN_RATE_PER_MIN", "10"))
	if err != nil {
		return nil, fmt.Errorf("parse LOGIN_RATE_PER_MIN: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Inventory: InventoryConfig{
			DataDir: getenvWithDefault("APP_DATA_DIR", "data"),
			Bases:   splitList(os.Getenv("APP_BASES"), DefaultBases),
		},
		Auth: AuthConfig{
			Password:       os.Getenv("APP_PASSWORD"),
			PasswordHash:   os.Getenv("APP_PASSWORD_HASH"),
			SessionSecret:  os.Getenv("SESSION_SECRET"),
			SessionTTL:     ttl,
			LoginPerMinute: perMinute,
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("SNAPSHOT_CRON", "0 21 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Tokyo"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "jewelstock"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			LogRange:        getenvWithDefault("GOOGLE_SHEET_LOG_RANGE", "Log!A:R"),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
		Log: LogConfig{
			Level:       getenvWithDefault("LOG_LEVEL", "info"),
			Development: os.Getenv("APP_ENV") == "development",
		},
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Inventory.DataDir == "" {
		return errors.New("APP_DATA_DIR must not be empty")
	}

	if len(c.Inventory.Bases) == 0 {
		return errors.New("APP_BASES must list at least one base")
	}
	seen := make(map[string]struct{}, len(c.Inventory.Bases))
	for _, base := range c.Inventory.Bases {
		if strings.ContainsAny(base, `/\`) {
			return fmt.Errorf("base %q must not contain path separators", base)
		}
		if _, dup := seen[base]; dup {
			return fmt.Errorf("base %q listed twice in APP_BASES", base)
		}
		seen[base] = struct{}{}
	}

	switch {
	case c.Auth.Password == "" && c.Auth.PasswordHash == "":
		return errors.New("APP_PASSWORD or APP_PASSWORD_HASH must be provided")
	case c.Auth.SessionSecret == "":
		return errors.New("SESSION_SECRET must be provided")
	case c.Auth.SessionTTL <= 0:
		return errors.New("SESSION_TTL must be positive")
	case c.Auth.LoginPerMinute <= 0:
		return errors.New("LOGIN_RATE_PER_MIN must be positive")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("SNAPSHOT_CRON must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided when MONGODB_URI is set")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be set together")
	}

	return nil
}

// Location resolves the reporting timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string, fallback []string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
