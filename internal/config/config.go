package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSessionSecret is only acceptable outside prod.
const DefaultSessionSecret = "dev-session-secret"

type Config struct {
	Port string

	// Env is "dev" (default) or "prod". When "prod", SESSION_SECRET must be set and not the default.
	Env string

	DBHost    string
	DBPort    string
	DBName    string
	DBUser    string
	DBPass    string
	DBSSLMode string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 10).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int
	// DBConnMaxLifetime bounds how long a pooled connection is reused (default 30m).
	DBConnMaxLifetime time.Duration

	SessionSecret string
	// SessionTTL is the session token lifetime. Set via SESSION_TTL_HOURS (default 24).
	SessionTTL time.Duration
	// CookieSecure marks the session cookie Secure. Disable only for plain-HTTP development.
	CookieSecure bool

	// CatalogBaseURL and CatalogAPIKey address the external movie catalog.
	CatalogBaseURL string
	CatalogAPIKey  string
	CatalogTimeout time.Duration

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string

	// CORSAllowedOrigins is a list of origins allowed to call the API with credentials.
	// Set via CORS_ALLOWED_ORIGINS (comma-separated). Empty means same-origin only.
	CORSAllowedOrigins []string

	// ActivityRetention is how long auth activity rows are kept (ACTIVITY_RETENTION_DAYS, default 90).
	ActivityRetention time.Duration
	// ActivityPruneCron is the cron expression for the pruning job (default daily at 03:00).
	ActivityPruneCron string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "dev"),

		DBHost:    getEnv("DB_HOST", "localhost"),
		DBPort:    getEnv("DB_PORT", "5432"),
		DBName:    getEnv("DB_NAME", "cinebrowse"),
		DBUser:    getEnv("DB_USER", "cinebrowse"),
		DBPass:    getEnv("DB_PASS", "cinebrowse"),
		DBSSLMode: getEnv("DB_SSLMODE", "disable"),

		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,

		SessionSecret: getEnv("SESSION_SECRET", DefaultSessionSecret),
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		CookieSecure:  getEnvBool("COOKIE_SECURE", true),

		CatalogBaseURL: getEnv("CATALOG_BASE_URL", "https://api.themoviedb.org/3"),
		CatalogAPIKey:  getEnv("CATALOG_API_KEY", ""),
		CatalogTimeout: time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 10)) * time.Second,

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),

		CORSAllowedOrigins: parseCORSOrigins(getEnv("CORS_ALLOWED_ORIGINS", "")),

		ActivityRetention: time.Duration(getEnvInt("ACTIVITY_RETENTION_DAYS", 90)) * 24 * time.Hour,
		ActivityPruneCron: getEnv("ACTIVITY_PRUNE_CRON", "0 3 * * *"),
	}
}

// Validate rejects configurations that must not reach production.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.SessionSecret == "" || c.SessionSecret == DefaultSessionSecret) {
		return errors.New("SESSION_SECRET must be set in prod")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL_HOURS must be positive")
	}
	return nil
}

// TLSEnabled reports whether both a certificate and key are configured.
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// DatabaseURL returns the postgres URL form used by the migrator.
func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// DSN returns the key/value connection string for lib/pq.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPass, c.DBSSLMode,
	)
}

// parseCORSOrigins splits a comma-separated list of origins and trims spaces. Empty strings are omitted.
func parseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
