// Package cookiekey generates session cookie signing secrets.
package cookiekey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/louisbranch/paydeck/internal/services/console/session"
)

// Config holds configuration for cookie secret generation.
type Config struct {
	Bytes int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: session.MinSecretLen}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes (default: 32)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the secret and writes it to out in env-file form. Secrets
// below the codec minimum are rejected here so a generated key is always
// one the console will accept.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < session.MinSecretLen {
		return fmt.Errorf("bytes must be at least %d", session.MinSecretLen)
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "PAYDECK_CONSOLE_COOKIE_SECRET=%s\n", hex.EncodeToString(buf))
	return err
}
