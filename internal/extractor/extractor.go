package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/kkdai/youtube/v2"

	"audiopress/internal/fileutil"
	"audiopress/internal/logging"
	"audiopress/internal/media"
	"audiopress/internal/resolver"
	"audiopress/internal/services"
)

const stage = "extract"

// Kind distinguishes what a strategy produced: a raw container stream
// that still needs transcoding, or a finished MP3.
type Kind int

const (
	RawStream Kind = iota
	FinalArtifact
)

// Result is a successful extraction. Path points at a non-empty file in
// the job workspace.
type Result struct {
	Kind     Kind
	Path     string
	Strategy string
}

// Attempt records one strategy outcome for diagnostics.
type Attempt struct {
	Strategy string
	Err      error
}

// Job is the input to the strategy chain.
type Job struct {
	Request    media.DownloadRequest
	Resolution resolver.Resolution
	RawPath    string // destination for a raw stream
	MP3Path    string // destination for a finished MP3
}

// StreamFetcher opens the payload stream for one selected format.
type StreamFetcher interface {
	Stream(ctx context.Context, httpClient *http.Client, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

type libraryStreamer struct{}

func (libraryStreamer) Stream(ctx context.Context, httpClient *http.Client, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	client := youtube.Client{HTTPClient: httpClient}
	return client.GetStreamContext(ctx, video, format)
}

// AudioTool is the external downloader producing a finished MP3.
type AudioTool interface {
	ExtractAudio(ctx context.Context, url string, quality media.Quality, outputPath string) error
}

// ClientFactory builds the HTTP client presenting one profile identity.
type ClientFactory func(profile resolver.Profile) (*http.Client, error)

// Strategy is one way of obtaining the audio payload.
type Strategy interface {
	Name() string
	Applicable(job Job) bool
	Run(ctx context.Context, job Job) (Result, error)
}

type Options struct {
	Streamer StreamFetcher      // nil selects the extraction library
	Tool     AudioTool          // nil drops the tool strategy
	Profiles []resolver.Profile // nil selects the standard order
	ProxyURL string
	Clients  ClientFactory // nil builds per-profile clients with the proxy
	Logger   *slog.Logger
}

type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

func New(opts Options) *Extractor {
	streamer := opts.Streamer
	if streamer == nil {
		streamer = libraryStreamer{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	profiles := opts.Profiles
	if len(profiles) == 0 {
		profiles = resolver.Profiles()
	}
	clients := opts.Clients
	if clients == nil {
		proxyURL := opts.ProxyURL
		clients = func(profile resolver.Profile) (*http.Client, error) {
			return resolver.HTTPClient(profile, proxyURL, 0)
		}
	}
	strategies := []Strategy{
		&targetedStrategy{streamer: streamer},
	}
	// The generic-stream fallback walks the same client identities the
	// resolver walks, one strategy per profile, so a stream refusal on
	// one identity rotates to the next instead of giving up.
	for _, profile := range profiles {
		strategies = append(strategies, &bestAudioStrategy{
			streamer: streamer,
			profile:  profile,
			clients:  clients,
		})
	}
	if opts.Tool != nil {
		strategies = append(strategies, &toolStrategy{tool: opts.Tool})
	}
	return &Extractor{strategies: strategies, logger: logger}
}

// Extract runs the strategy chain in order and returns the first
// success. Partial files of failed attempts are removed before the next
// strategy runs; the attempt log is returned even on success.
func (e *Extractor) Extract(ctx context.Context, job Job) (Result, []Attempt, error) {
	logger := e.logger.With(logging.String(logging.FieldURL, job.Request.SourceURL))

	attempts := make([]Attempt, 0, len(e.strategies))
	for _, strategy := range e.strategies {
		if !strategy.Applicable(job) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, attempts, services.Wrap(services.ErrExtraction, stage, strategy.Name(), "request cancelled", err)
		}
		result, err := strategy.Run(ctx, job)
		if err != nil {
			logger.Warn("strategy failed",
				logging.String(logging.FieldStrategy, strategy.Name()),
				logging.Error(err))
			attempts = append(attempts, Attempt{Strategy: strategy.Name(), Err: err})
			fileutil.RemoveIfExists(job.RawPath)
			fileutil.RemoveIfExists(job.MP3Path)
			continue
		}
		attempts = append(attempts, Attempt{Strategy: strategy.Name()})
		logger.Info("stream obtained", logging.String(logging.FieldStrategy, strategy.Name()))
		return result, attempts, nil
	}
	return Result{}, attempts, services.Wrap(services.ErrExtraction, stage, "chain", "all strategies exhausted", lastAttemptErr(attempts))
}

func lastAttemptErr(attempts []Attempt) error {
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Err != nil {
			return attempts[i].Err
		}
	}
	return nil
}

// targetedStrategy downloads the variant the selection rule picks for
// the requested quality tier.
type targetedStrategy struct {
	streamer StreamFetcher
}

func (s *targetedStrategy) Name() string { return "targeted" }

func (s *targetedStrategy) Applicable(job Job) bool {
	return job.Resolution.Video != nil
}

func (s *targetedStrategy) Run(ctx context.Context, job Job) (Result, error) {
	format, err := SelectAudioVariant(job.Resolution.Video.Formats, job.Request.Quality)
	if err != nil {
		return Result{}, err
	}
	if err := downloadStream(ctx, s.streamer, job.Resolution.Client, job, format); err != nil {
		return Result{}, err
	}
	return Result{Kind: RawStream, Path: job.RawPath, Strategy: s.Name()}, nil
}

// bestAudioStrategy ignores the quality tier and takes the richest
// audio stream available, fetched through one profile identity. The
// transcode stage pins the bitrate anyway.
type bestAudioStrategy struct {
	streamer StreamFetcher
	profile  resolver.Profile
	clients  ClientFactory
}

func (s *bestAudioStrategy) Name() string { return "best-audio/" + s.profile.Name }

func (s *bestAudioStrategy) Applicable(job Job) bool {
	return job.Resolution.Video != nil
}

func (s *bestAudioStrategy) Run(ctx context.Context, job Job) (Result, error) {
	variants := audioVariants(job.Resolution.Video.Formats)
	if len(variants) == 0 {
		return Result{}, ErrNoAudioVariant
	}
	pick := variants[0]
	for _, v := range variants[1:] {
		if variantKbps(v) > variantKbps(pick) {
			pick = v
		}
	}
	httpClient, err := s.clients(s.profile)
	if err != nil {
		return Result{}, fmt.Errorf("build %s client: %w", s.profile.Name, err)
	}
	if err := downloadStream(ctx, s.streamer, httpClient, job, pick); err != nil {
		return Result{}, err
	}
	return Result{Kind: RawStream, Path: job.RawPath, Strategy: s.Name()}, nil
}

// toolStrategy shells out to the external downloader, which emits a
// finished MP3 and needs no transcode pass.
type toolStrategy struct {
	tool AudioTool
}

func (s *toolStrategy) Name() string { return "tool" }

func (s *toolStrategy) Applicable(Job) bool { return true }

func (s *toolStrategy) Run(ctx context.Context, job Job) (Result, error) {
	if err := s.tool.ExtractAudio(ctx, job.Request.SourceURL, job.Request.Quality, job.MP3Path); err != nil {
		return Result{}, err
	}
	if !fileutil.NonEmpty(job.MP3Path) {
		return Result{}, fmt.Errorf("tool produced no output at %s", job.MP3Path)
	}
	return Result{Kind: FinalArtifact, Path: job.MP3Path, Strategy: s.Name()}, nil
}

// downloadStream copies the remote payload to the raw destination. An
// empty result file counts as a failure so the chain moves on.
func downloadStream(ctx context.Context, streamer StreamFetcher, httpClient *http.Client, job Job, format *youtube.Format) error {
	reader, _, err := streamer.Stream(ctx, httpClient, job.Resolution.Video, format)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer reader.Close()

	out, err := os.Create(job.RawPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", job.RawPath, err)
	}
	written, copyErr := io.Copy(out, reader)
	closeErr := out.Close()
	if copyErr != nil {
		return fmt.Errorf("copy stream: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", job.RawPath, closeErr)
	}
	if written == 0 {
		return fmt.Errorf("stream for itag %d was empty", format.ItagNo)
	}
	return nil
}
