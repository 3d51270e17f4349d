package console

import (
	"flag"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PAYDECK_UPSTREAM_URL", "http://localhost:9000")
	t.Setenv("PAYDECK_CONSOLE_COOKIE_SECRET", testSecret)
}

func TestParseConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":8087" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, ":8087")
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Fatalf("UpstreamTimeout = %v, want %v", cfg.UpstreamTimeout, 10*time.Second)
	}
	if cfg.DBPath != "data/console.db" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, "data/console.db")
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Fatalf("SweepInterval = %v, want %v", cfg.SweepInterval, 5*time.Minute)
	}
}

func TestParseConfigFlagOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAYDECK_CONSOLE_ADDR", ":9999")

	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	args := []string{"-addr", ":7070", "-upstream-timeout", "3s", "-db-path", "other.db"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, ":7070")
	}
	if cfg.UpstreamTimeout != 3*time.Second {
		t.Fatalf("UpstreamTimeout = %v, want %v", cfg.UpstreamTimeout, 3*time.Second)
	}
	if cfg.DBPath != "other.db" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, "other.db")
	}
}

func TestParseConfigRequiresUpstreamURL(t *testing.T) {
	t.Setenv("PAYDECK_UPSTREAM_URL", "")
	t.Setenv("PAYDECK_CONSOLE_COOKIE_SECRET", testSecret)

	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("ParseConfig accepted missing upstream URL")
	}
}

func TestParseConfigRejectsShortSecret(t *testing.T) {
	t.Setenv("PAYDECK_UPSTREAM_URL", "http://localhost:9000")
	t.Setenv("PAYDECK_CONSOLE_COOKIE_SECRET", "too-short")

	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	_, err := ParseConfig(fs, nil)
	if err == nil {
		t.Fatal("ParseConfig accepted short cookie secret")
	}
	if !strings.Contains(err.Error(), "COOKIE_SECRET") {
		t.Fatalf("error = %v, want cookie secret complaint", err)
	}
}
