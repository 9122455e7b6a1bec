package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audiopress/internal/config"
	"audiopress/internal/logging"
	"audiopress/internal/store"
)

const janitorInterval = time.Hour

// janitor removes completed artifacts past their TTL and prunes the
// matching history rows. Retention is judged by file modification time,
// which is when the artifact was promoted.
type janitor struct {
	completedDir string
	ttl          time.Duration
	store        *store.Store
	interval     time.Duration
	logger       *slog.Logger
}

func newJanitor(cfg *config.Config, st *store.Store, logger *slog.Logger) *janitor {
	return &janitor{
		completedDir: cfg.Paths.CompletedDir,
		ttl:          cfg.ArtifactTTL(),
		store:        st,
		interval:     janitorInterval,
		logger:       logger,
	}
}

func (j *janitor) run(ctx context.Context) {
	j.sweep(ctx)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *janitor) sweep(ctx context.Context) {
	removed := j.sweepFiles()
	pruned := int64(0)
	if j.store != nil {
		count, err := j.store.PruneExpired(ctx, time.Now())
		if err != nil {
			j.logger.Warn("history prune failed", logging.Error(err))
		} else {
			pruned = count
		}
	}
	if removed > 0 || pruned > 0 {
		j.logger.Info("expired artifacts removed",
			logging.Int("files", removed),
			logging.Int64("history_rows", pruned))
	}
}

func (j *janitor) sweepFiles() int {
	if j.ttl <= 0 {
		return 0
	}
	entries, err := os.ReadDir(j.completedDir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("completed dir scan failed", logging.Error(err))
		}
		return 0
	}
	cutoff := time.Now().Add(-j.ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.completedDir, entry.Name())
		if err := os.Remove(path); err != nil {
			j.logger.Warn("artifact removal failed",
				logging.String("file", entry.Name()),
				logging.Error(err))
			continue
		}
		removed++
	}
	return removed
}
