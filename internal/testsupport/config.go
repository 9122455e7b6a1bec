// Package testsupport provides shared helpers for package tests: temp
// directory configs and stubbed external binaries.
package testsupport

import (
	"path/filepath"
	"testing"

	"audiopress/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test and a loopback API bind on an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.CompletedDir = filepath.Join(base, "completed")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithProxy sets the outbound proxy on the test config.
func WithProxy(proxyURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Network.ProxyURL = proxyURL
	}
}

// WithMaxDuration overrides the conversion length ceiling.
func WithMaxDuration(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Limits.MaxDurationSeconds = seconds
	}
}
