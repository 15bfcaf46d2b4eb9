package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendWorkbook Backend = "workbook"
	BackendGSheets  Backend = "gsheets"
	BackendMemory   Backend = "memory"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=labstock port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	Environment string
	LogLevel    string

	Backend               Backend
	DatabaseDSN           string
	WorkbookPath          string // local .xlsx used by the workbook backend
	SpreadsheetID         string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string // inline service-account JSON, wins over the file

	JWTSecret         string
	AdminPasswordHash string // bcrypt hash unlocking the admin role
	CORSOrigins       string
	PublicBaseURL     string // prefix of the deep links printed on QR labels
	HistoryTimezone   string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromEnv() *Config {
	return &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Backend:               Backend(strings.ToLower(getEnv("STORAGE_BACKEND", string(BackendPostgres)))),
		DatabaseDSN:           getEnv("DATABASE_DSN", defaultDSN),
		WorkbookPath:          getEnv("WORKBOOK_PATH", "./labstock.xlsx"),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		AdminPasswordHash:     getEnv("ADMIN_PASSWORD_HASH", ""),
		CORSOrigins:           getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:8080/scan"),
		HistoryTimezone:       getEnv("HISTORY_TIMEZONE", "Asia/Tokyo"),
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres backend"))
		}
	case BackendWorkbook:
		if c.WorkbookPath == "" {
			errs = append(errs, errors.New("WORKBOOK_PATH is required for the workbook backend"))
		}
	case BackendGSheets:
		if c.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required for the gsheets backend"))
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			errs = append(errs, errors.New("GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE is required for the gsheets backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Backend))
	}
	if _, err := time.LoadLocation(c.HistoryTimezone); err != nil {
		errs = append(errs, fmt.Errorf("HISTORY_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Warnings lists settings left at development defaults.
func (c *Config) Warnings() []string {
	var w []string
	if c.Backend == BackendPostgres && c.DatabaseDSN == defaultDSN {
		w = append(w, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		w = append(w, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	if c.AdminPasswordHash == "" {
		w = append(w, "ADMIN_PASSWORD_HASH is empty, admin unlock is disabled")
	}
	if c.Backend == BackendMemory {
		w = append(w, "memory backend selected, data is lost on restart")
	}
	return w
}

// Location returns the zone history timestamps are written in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.HistoryTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
