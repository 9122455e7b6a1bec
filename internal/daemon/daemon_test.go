package daemon

import (
	"context"
	"path/filepath"
	"testing"

	"audiopress/internal/logging"
	"audiopress/internal/store"
	"audiopress/internal/testsupport"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	testsupport.StubBinaries(t)
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	st, err := store.OpenPath(filepath.Join(cfg.Paths.LogDir, "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon must fail")
	}
	d.Stop()
	// Stop is idempotent.
	d.Stop()
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	second, err := New(d.cfg, d.store, logging.NewNop())
	if err != nil {
		t.Fatalf("New second daemon: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}
