// Package console parses console command flags and runs the BFF process.
package console

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/paydeck/internal/platform/config"
	"github.com/louisbranch/paydeck/internal/platform/otel"
	consoleapp "github.com/louisbranch/paydeck/internal/services/console"
	"github.com/louisbranch/paydeck/internal/services/console/session"
)

// Config holds console command configuration.
type Config struct {
	Addr            string        `env:"PAYDECK_CONSOLE_ADDR"           envDefault:":8087"`
	UpstreamURL     string        `env:"PAYDECK_UPSTREAM_URL"`
	UpstreamTimeout time.Duration `env:"PAYDECK_UPSTREAM_TIMEOUT"       envDefault:"10s"`
	CookieSecret    string        `env:"PAYDECK_CONSOLE_COOKIE_SECRET"`
	DBPath          string        `env:"PAYDECK_CONSOLE_DB_PATH"        envDefault:"data/console.db"`
	SweepInterval   time.Duration `env:"PAYDECK_CONSOLE_SWEEP_INTERVAL" envDefault:"5m"`
}

// ParseConfig parses environment and flags into a Config. The cookie secret
// is env-only so it never shows up in process listings.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.UpstreamURL, "upstream-url", cfg.UpstreamURL, "upstream API base URL")
	fs.DurationVar(&cfg.UpstreamTimeout, "upstream-timeout", cfg.UpstreamTimeout, "upstream request timeout")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "audit sqlite database path")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "expired session sweep interval")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.UpstreamURL) == "" {
		return Config{}, errors.New("PAYDECK_UPSTREAM_URL or -upstream-url is required")
	}
	if len(cfg.CookieSecret) < session.MinSecretLen {
		return Config{}, fmt.Errorf("PAYDECK_CONSOLE_COOKIE_SECRET must be at least %d bytes", session.MinSecretLen)
	}
	return cfg, nil
}

// Run starts the console server.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "console")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	server, err := consoleapp.NewServer(consoleapp.Config{
		Addr:            cfg.Addr,
		UpstreamURL:     cfg.UpstreamURL,
		UpstreamTimeout: cfg.UpstreamTimeout,
		CookieSecret:    cfg.CookieSecret,
		DBPath:          cfg.DBPath,
		SweepInterval:   cfg.SweepInterval,
	})
	if err != nil {
		return fmt.Errorf("init console server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve console: %w", err)
	}
	return nil
}
