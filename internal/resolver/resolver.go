package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"

	"audiopress/internal/logging"
	"audiopress/internal/media"
	"audiopress/internal/services"
)

const stage = "resolve"

// VideoFetcher fetches the video description through one HTTP client
// identity. The production implementation wraps the extraction library;
// tests substitute their own.
type VideoFetcher interface {
	Fetch(ctx context.Context, httpClient *http.Client, rawURL string) (*youtube.Video, error)
}

type libraryFetcher struct{}

func (libraryFetcher) Fetch(ctx context.Context, httpClient *http.Client, rawURL string) (*youtube.Video, error) {
	client := youtube.Client{HTTPClient: httpClient}
	return client.GetVideoContext(ctx, rawURL)
}

// MetadataDumper is the external-tool fallback used when every profile
// is refused.
type MetadataDumper interface {
	DumpMetadata(ctx context.Context, rawURL string) (media.VideoMetadata, error)
}

// Attempt records one refused resolution strategy. The orchestrator
// folds these rows into the job's diagnostic trail.
type Attempt struct {
	Strategy string
	Err      error
}

// Resolution carries everything the extraction stage needs: the parsed
// video with its format list plus the HTTP client of the profile that
// succeeded, so streaming reuses the identity that got through.
type Resolution struct {
	Metadata media.VideoMetadata
	Video    *youtube.Video
	Client   *http.Client
	Profile  Profile
	ViaTool  bool
}

type Options struct {
	Tool        MetadataDumper
	Fetcher     VideoFetcher // nil selects the extraction library
	Profiles    []Profile    // nil selects the standard order
	ProxyURL    string
	Timeout     time.Duration // per-attempt ceiling
	MaxDuration time.Duration // 0 disables the length gate
	Logger      *slog.Logger
}

type Resolver struct {
	fetcher     VideoFetcher
	tool        MetadataDumper
	profiles    []Profile
	proxyURL    string
	timeout     time.Duration
	maxDuration time.Duration
	logger      *slog.Logger
}

func New(opts Options) *Resolver {
	r := &Resolver{
		fetcher:     opts.Fetcher,
		tool:        opts.Tool,
		profiles:    opts.Profiles,
		proxyURL:    opts.ProxyURL,
		timeout:     opts.Timeout,
		maxDuration: opts.MaxDuration,
		logger:      opts.Logger,
	}
	if r.fetcher == nil {
		r.fetcher = libraryFetcher{}
	}
	if len(r.profiles) == 0 {
		r.profiles = Profiles()
	}
	if r.timeout <= 0 {
		r.timeout = 10 * time.Second
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve walks the profile order, then the external tool, and returns
// the first successful resolution together with the refused attempts
// that preceded it. The length gate runs before the result is handed on
// so over-limit videos never reach extraction.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (Resolution, []Attempt, error) {
	logger := r.logger.With(logging.String(logging.FieldURL, rawURL))

	attempts := make([]Attempt, 0, len(r.profiles)+1)
	var lastErr error
	for _, profile := range r.profiles {
		httpClient, err := HTTPClient(profile, r.proxyURL, r.timeout)
		if err != nil {
			return Resolution{}, attempts, services.Wrap(services.ErrConfiguration, stage, "build client", profile.Name, err)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		video, err := r.fetcher.Fetch(attemptCtx, httpClient, rawURL)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, attempts, services.Wrap(services.ErrUnresolvable, stage, "fetch", "request cancelled", ctx.Err())
			}
			logger.Warn("profile refused",
				logging.String(logging.FieldStrategy, profile.Name),
				logging.Error(err))
			attempts = append(attempts, Attempt{Strategy: profile.Name, Err: err})
			lastErr = err
			continue
		}
		resolution := Resolution{
			Metadata: metadataFromVideo(video),
			Video:    video,
			Client:   httpClient,
			Profile:  profile,
		}
		if err := r.gate(resolution.Metadata); err != nil {
			return Resolution{}, attempts, err
		}
		logger.Info("metadata resolved",
			logging.String(logging.FieldStrategy, profile.Name),
			logging.String("title", resolution.Metadata.Title),
			logging.Int("duration_s", resolution.Metadata.DurationSeconds))
		return resolution, attempts, nil
	}

	if r.tool != nil {
		meta, err := r.tool.DumpMetadata(ctx, rawURL)
		if err == nil {
			resolution := Resolution{Metadata: meta, ViaTool: true}
			if err := r.gate(meta); err != nil {
				return Resolution{}, attempts, err
			}
			logger.Info("metadata resolved",
				logging.String(logging.FieldStrategy, "tool"),
				logging.String("title", meta.Title))
			return resolution, attempts, nil
		}
		logger.Warn("tool fallback refused", logging.Error(err))
		attempts = append(attempts, Attempt{Strategy: "tool", Err: err})
		lastErr = err
	}

	return Resolution{}, attempts, services.Wrap(services.ErrUnresolvable, stage, "fetch", "all client profiles exhausted", lastErr)
}

func (r *Resolver) gate(meta media.VideoMetadata) error {
	if r.maxDuration <= 0 || meta.Duration() <= r.maxDuration {
		return nil
	}
	detail := fmt.Sprintf("video runs %s, limit %s", meta.Duration(), r.maxDuration)
	return services.Wrap(services.ErrTooLong, stage, "length gate", detail, nil)
}

func metadataFromVideo(video *youtube.Video) media.VideoMetadata {
	meta := media.VideoMetadata{
		Title:           video.Title,
		DurationSeconds: int(video.Duration / time.Second),
		AuthorName:      video.Author,
		ViewCount:       int64(video.Views),
	}
	best := -1
	for i, thumb := range video.Thumbnails {
		if best < 0 || thumb.Width > video.Thumbnails[best].Width {
			best = i
		}
	}
	if best >= 0 {
		meta.ThumbnailURL = video.Thumbnails[best].URL
	}
	return meta
}
