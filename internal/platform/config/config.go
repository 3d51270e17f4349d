// Package config loads process configuration from PAYDECK_* environment
// variables. Commands declare a struct with `env` tags, parse it here, and
// layer flag overrides on top.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from the environment using its `env` struct tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Exitf prints a fatal message to stderr and exits with code 1. Command
// mains use it so every process dies the same way on bad configuration.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
