package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "")
	t.Setenv("DB_MAX_OPEN_CONNS", "")
	t.Setenv("COOKIE_SECURE", "")

	cfg := Load()
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL: got %v, want 24h", cfg.SessionTTL)
	}
	if cfg.DBMaxOpenConns != 10 {
		t.Errorf("DBMaxOpenConns: got %d, want 10", cfg.DBMaxOpenConns)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should default to true")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg := Load()
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL: got %v, want 2h", cfg.SessionTTL)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should be false")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.DBMaxOpenConns != 10 {
		t.Errorf("invalid int should fall back, got %d", cfg.DBMaxOpenConns)
	}
}

func TestValidate_ProdRequiresSecret(t *testing.T) {
	cfg := Config{Env: "prod", SessionSecret: DefaultSessionSecret, SessionTTL: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default secret in prod")
	}
	cfg.SessionSecret = "a-real-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDatabaseURL_EscapesPassword(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5432", DBName: "movies", DBUser: "u", DBPass: "p@ss/word", DBSSLMode: "disable"}
	got := cfg.DatabaseURL()
	if !strings.HasPrefix(got, "postgres://u:p%40ss%2Fword@db:5432/movies") {
		t.Errorf("unexpected url: %s", got)
	}
	if !strings.HasSuffix(got, "sslmode=disable") {
		t.Errorf("missing sslmode: %s", got)
	}
}
