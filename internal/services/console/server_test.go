package console

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewServerRequiresUpstreamURL(t *testing.T) {
	t.Parallel()

	_, err := NewServer(Config{
		CookieSecret: testCookieSecret,
		DBPath:       filepath.Join(t.TempDir(), "console.db"),
	})
	if err == nil {
		t.Fatal("NewServer accepted an empty upstream URL")
	}
}

func TestNewServerRejectsShortCookieSecret(t *testing.T) {
	t.Parallel()

	_, err := NewServer(Config{
		UpstreamURL:  "http://127.0.0.1:1",
		CookieSecret: "too-short",
		DBPath:       filepath.Join(t.TempDir(), "console.db"),
	})
	if err == nil {
		t.Fatal("NewServer accepted a weak cookie secret")
	}
	if !strings.Contains(err.Error(), "cookie secret") {
		t.Fatalf("error = %v, want cookie secret complaint", err)
	}
}

func TestNewServerBuildsAndCloses(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(Config{
		Addr:            ":0",
		UpstreamURL:     "http://127.0.0.1:1",
		UpstreamTimeout: time.Second,
		CookieSecret:    testCookieSecret,
		DBPath:          filepath.Join(t.TempDir(), "console.db"),
		SweepInterval:   time.Minute,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Close()
}
