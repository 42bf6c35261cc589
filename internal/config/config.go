// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes upstream API
// settings, database connectivity, pipeline limits, logging, and
// observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Database
	DBDriver    string        // postgres|sqlite
	DatabaseURL string        // postgres DSN; assembled from POSTGRES_* when unset
	DBPath      string        // SQLite path when DBDriver=sqlite
	DBTimeout   time.Duration // per unit-of-work bound

	// Upstream API
	BaseURL       string        // HH_BASE_URL
	PageSize      int           // HH_PAGE_SIZE, per_page parameter
	EmployerPages int           // HH_EMPLOYER_PAGES, page cap for the employer listing
	VacancyPages  int           // HH_VACANCY_PAGES, page cap per employer's vacancies
	TopEmployers  int           // TOP_EMPLOYERS, how many employers get their vacancies loaded
	FetchTimeout  time.Duration // HTTP_TIMEOUT, per page request
	FetchRetries  int           // FETCH_RETRIES, transport retries per page
	RateRPS       float64       // RATE_RPS, upstream request budget
	RateBurst     int           // RATE_BURST

	// Reports
	ReportKeyword string // REPORT_KEYWORD, keyword for the search report

	// Ops
	MetricsPort         string // METRICS_PORT, health + /metrics listener
	ScrapeIntervalHours int    // SCRAPE_INTERVAL_HOURS, 0 = run once and exit

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DatabaseURL: getenv("DATABASE_URL", ""),
		DBPath:      getenv("DB_PATH", "hh-scout.db"),
		DBTimeout:   getdur("DB_TIMEOUT", 10*time.Second),

		BaseURL:       strings.TrimRight(getenv("HH_BASE_URL", "https://api.hh.ru"), "/"),
		PageSize:      getint("HH_PAGE_SIZE", 100),
		EmployerPages: getint("HH_EMPLOYER_PAGES", 1),
		VacancyPages:  getint("HH_VACANCY_PAGES", 20),
		TopEmployers:  getint("TOP_EMPLOYERS", 10),
		FetchTimeout:  getdur("HTTP_TIMEOUT", 15*time.Second),
		FetchRetries:  getint("FETCH_RETRIES", 3),
		RateRPS:       getfloat("RATE_RPS", 5.0),
		RateBurst:     getint("RATE_BURST", 5),

		ReportKeyword: getenv("REPORT_KEYWORD", "python"),

		MetricsPort:         getenv("METRICS_PORT", "8081"),
		ScrapeIntervalHours: getint("SCRAPE_INTERVAL_HOURS", 0),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "hh-scout"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = postgresDSNFromEnv()
	}

	// --- validation ---
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return cfg, errors.New("DB_DRIVER must be postgres or sqlite")
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL (or the POSTGRES_* variables) is required for the postgres driver")
	}
	if cfg.DBDriver == "sqlite" && strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return cfg, errors.New("HH_PAGE_SIZE must be between 1 and 100")
	}
	if cfg.EmployerPages < 1 || cfg.VacancyPages < 1 {
		return cfg, errors.New("page caps must be >= 1")
	}
	if cfg.TopEmployers < 1 {
		return cfg, errors.New("TOP_EMPLOYERS must be >= 1")
	}
	if cfg.FetchTimeout <= 0 || cfg.DBTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.FetchRetries < 0 {
		return cfg, errors.New("FETCH_RETRIES must be >= 0")
	}
	if cfg.RateRPS <= 0 {
		return cfg, errors.New("RATE_RPS must be > 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if strings.TrimSpace(cfg.MetricsPort) == "" {
		return cfg, errors.New("METRICS_PORT must not be empty")
	}
	if cfg.ScrapeIntervalHours < 0 {
		return cfg, errors.New("SCRAPE_INTERVAL_HOURS must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// postgresDSNFromEnv assembles a DSN from the individual POSTGRES_*
// variables. Returns "" when the essentials are missing.
func postgresDSNFromEnv() string {
	host := getenv("POSTGRES_HOST", "")
	db := getenv("POSTGRES_DB", "")
	if host == "" || db == "" {
		return ""
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getenv("POSTGRES_PORT", "5432"),
		getenv("POSTGRES_USER", "postgres"),
		getenv("POSTGRES_PASSWORD", ""),
		db,
		getenv("POSTGRES_SSLMODE", "disable"),
	)
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
