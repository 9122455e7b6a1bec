package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/time/rate"

	"audiopress/internal/api"
	"audiopress/internal/config"
	"audiopress/internal/deps"
	"audiopress/internal/extractor"
	"audiopress/internal/logging"
	"audiopress/internal/pipeline"
	"audiopress/internal/resolver"
	"audiopress/internal/services/ffmpeg"
	"audiopress/internal/services/ffprobe"
	"audiopress/internal/services/runner"
	"audiopress/internal/services/ytdlp"
	"audiopress/internal/store"
	"audiopress/internal/workspace"
)

type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	server *api.Server
	prober *deps.Prober

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs the daemon and wires every component from the loaded
// configuration. The store connection is owned by the daemon and closed
// with it.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil {
		return nil, errors.New("daemon requires config, store and logger")
	}

	run := runner.New()
	prober := deps.NewProber(run, deps.ExtractorTools(), cfg.ProbeTimeout())

	pipe, err := buildPipeline(cfg, st, run, prober, logger)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Limits.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Limits.RequestsPerSecond), cfg.Limits.RequestBurst)
	}
	server, err := api.NewServer(api.Options{
		Bind:         cfg.Paths.APIBind,
		Converter:    pipe,
		History:      st,
		Dependencies: prober,
		CompletedDir: cfg.Paths.CompletedDir,
		Limiter:      limiter,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "audiopressd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		server:   server,
		prober:   prober,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// buildPipeline assembles the conversion pipeline. The external tool is
// optional: when neither extraction executable is installed, the
// library strategies carry the whole load.
func buildPipeline(cfg *config.Config, st *store.Store, run runner.Runner, prober *deps.Prober, logger *slog.Logger) (*pipeline.Pipeline, error) {
	var (
		tool        *ytdlp.Client
		toolAsMeta  resolver.MetadataDumper
		toolAsAudio extractor.AudioTool
	)
	if handle, ok := prober.First(context.Background()); ok {
		client, err := ytdlp.New(handle.Command,
			ytdlp.WithRunner(run),
			ytdlp.WithTimeouts(cfg.MetadataTimeout(), cfg.ExtractTimeout()))
		if err != nil {
			return nil, fmt.Errorf("configure extraction tool: %w", err)
		}
		tool = client
		toolAsMeta = tool
		toolAsAudio = tool
		logger.Info("external extraction tool available",
			logging.String(logging.FieldTool, handle.Name),
			logging.String("version", handle.Version))
	} else {
		logger.Warn("no external extraction tool found, library strategies only")
	}

	res := resolver.New(resolver.Options{
		Tool:        toolAsMeta,
		ProxyURL:    cfg.Network.ProxyURL,
		Timeout:     cfg.MetadataTimeout(),
		MaxDuration: cfg.MaxDuration(),
		Logger:      logging.NewComponentLogger(logger, "resolver"),
	})
	ex := extractor.New(extractor.Options{
		Tool:     toolAsAudio,
		ProxyURL: cfg.Network.ProxyURL,
		Logger:   logging.NewComponentLogger(logger, "extractor"),
	})
	encoder := ffmpeg.New(cfg.FFmpegBinary(),
		ffmpeg.WithRunner(run),
		ffmpeg.WithTimeout(cfg.ExtractTimeout()))
	verifier := ffprobe.New(cfg.FFprobeBinary(),
		ffprobe.WithRunner(run),
		ffprobe.WithTimeout(cfg.ProbeTimeout()))

	return pipeline.New(pipeline.Options{
		Resolver:    res,
		Extractor:   ex,
		Transcoder:  encoder,
		Verifier:    verifier,
		Sink:        st,
		Workspaces:  workspace.NewManager(cfg.Paths.WorkDir, cfg.Paths.CompletedDir),
		ArtifactTTL: cfg.ArtifactTTL(),
		Logger:      logging.NewComponentLogger(logger, "pipeline"),
	})
}

// Start acquires the single-instance lock and brings up the API server
// and the janitor. It returns once everything is running.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another audiopress daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.server.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	janitor := newJanitor(d.cfg, d.store, logging.NewComponentLogger(d.logger, "janitor"))
	go janitor.run(runCtx)

	d.running.Store(true)
	d.logger.Info("audiopress daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("audiopress daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LockFilePath returns where the single-instance lock lives.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}
