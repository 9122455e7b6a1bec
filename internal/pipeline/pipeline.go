package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"audiopress/internal/extractor"
	"audiopress/internal/fileutil"
	"audiopress/internal/logging"
	"audiopress/internal/media"
	"audiopress/internal/resolver"
	"audiopress/internal/services"
	"audiopress/internal/store"
	"audiopress/internal/textutil"
	"audiopress/internal/workspace"
)

// Stage names as they appear in logs and failure records.
const (
	StageValidating  = "validating"
	StageResolving   = "resolving"
	StageExtracting  = "extracting"
	StageTranscoding = "transcoding"
	StageVerifying   = "verifying"
	StagePromoting   = "promoting"
)

// Attempt is one strategy outcome in a job's diagnostic trail. The
// trail spans metadata resolution and extraction, lives for one job,
// and is discarded when the job ends.
type Attempt struct {
	Stage    string
	Strategy string
	Err      error
}

// MetadataResolver resolves a watch URL into metadata and stream
// context, reporting the refused attempts alongside the result.
type MetadataResolver interface {
	Resolve(ctx context.Context, rawURL string) (resolver.Resolution, []resolver.Attempt, error)
}

// AudioExtractor obtains the audio payload for one job.
type AudioExtractor interface {
	Extract(ctx context.Context, job extractor.Job) (extractor.Result, []extractor.Attempt, error)
}

// Transcoder converts a raw stream into a constant-bitrate MP3.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, quality media.Quality) error
}

// Verifier measures a finished artifact's bitrate. Advisory: it returns
// zero when the measurement is unavailable and never fails the job.
type Verifier interface {
	Verify(ctx context.Context, logger *slog.Logger, path string, quality media.Quality) int
}

// Sink receives job outcomes. Both calls are fire-and-forget from the
// pipeline's point of view.
type Sink interface {
	RecordConversion(ctx context.Context, conv store.Conversion) error
	RecordFailure(ctx context.Context, failure store.Failure) error
}

type Options struct {
	Resolver    MetadataResolver
	Extractor   AudioExtractor
	Transcoder  Transcoder
	Verifier    Verifier // nil skips measurement
	Sink        Sink     // nil disables history
	Workspaces  *workspace.Manager
	ArtifactTTL time.Duration
	Logger      *slog.Logger
}

type Pipeline struct {
	resolver   MetadataResolver
	extractor  AudioExtractor
	transcoder Transcoder
	verifier   Verifier
	sink       Sink
	workspaces *workspace.Manager
	ttl        time.Duration
	logger     *slog.Logger
}

func New(opts Options) (*Pipeline, error) {
	if opts.Resolver == nil || opts.Extractor == nil || opts.Transcoder == nil || opts.Workspaces == nil {
		return nil, fmt.Errorf("pipeline: resolver, extractor, transcoder and workspaces are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.ArtifactTTL
	if ttl <= 0 {
		ttl = 5 * 24 * time.Hour
	}
	return &Pipeline{
		resolver:   opts.Resolver,
		extractor:  opts.Extractor,
		transcoder: opts.Transcoder,
		verifier:   opts.Verifier,
		sink:       opts.Sink,
		workspaces: opts.Workspaces,
		ttl:        ttl,
		logger:     logger,
	}, nil
}

// Metadata resolves a URL without starting a conversion. Validation and
// the length gate apply exactly as in Process.
func (p *Pipeline) Metadata(ctx context.Context, rawURL string) (media.VideoMetadata, error) {
	req := media.DownloadRequest{SourceURL: rawURL, Quality: media.Quality128}
	if err := media.ValidateRequest(req); err != nil {
		return media.VideoMetadata{}, err
	}
	resolution, _, err := p.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return media.VideoMetadata{}, err
	}
	return resolution.Metadata, nil
}

// Process runs one job end to end and returns the promoted artifact.
func (p *Pipeline) Process(ctx context.Context, req media.DownloadRequest) (media.ArtifactDescriptor, error) {
	if err := media.ValidateRequest(req); err != nil {
		p.notifyFailure(req, StageValidating, err)
		return media.ArtifactDescriptor{}, err
	}

	ws, err := p.workspaces.Create()
	if err != nil {
		wrapped := services.Wrap(nil, StageExtracting, "workspace", "allocate job directory", err)
		p.notifyFailure(req, StageExtracting, wrapped)
		return media.ArtifactDescriptor{}, wrapped
	}
	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			p.logger.Warn("workspace cleanup failed", logging.Error(cleanupErr))
		}
	}()

	ctx = services.WithJobID(ctx, ws.JobID)
	logger := logging.WithContext(ctx, p.logger).With(
		logging.String(logging.FieldURL, req.SourceURL),
		logging.String(logging.FieldQuality, string(req.Quality)))

	logger.Info("job started", logging.String(logging.FieldStage, StageResolving))
	resolution, resolveAttempts, err := p.resolver.Resolve(ctx, req.SourceURL)
	trail := make([]Attempt, 0, len(resolveAttempts)+4)
	for _, a := range resolveAttempts {
		trail = append(trail, Attempt{Stage: StageResolving, Strategy: a.Strategy, Err: a.Err})
	}
	if err != nil {
		p.notifyFailure(req, StageResolving, err)
		return media.ArtifactDescriptor{}, err
	}

	job := extractor.Job{
		Request:    req,
		Resolution: resolution,
		RawPath:    ws.Path("source.raw"),
		MP3Path:    ws.Path("audio.mp3"),
	}
	logger.Info("extracting audio", logging.String(logging.FieldStage, StageExtracting))
	result, extractAttempts, err := p.extractor.Extract(ctx, job)
	for _, a := range extractAttempts {
		trail = append(trail, Attempt{Stage: StageExtracting, Strategy: a.Strategy, Err: a.Err})
	}
	if err != nil {
		logger.Warn("extraction exhausted",
			logging.Int("attempts", len(trail)),
			logging.Error(err))
		p.notifyFailure(req, StageExtracting, err)
		return media.ArtifactDescriptor{}, err
	}

	mp3Path := result.Path
	if result.Kind == extractor.RawStream {
		logger.Info("transcoding", logging.String(logging.FieldStage, StageTranscoding))
		if err := p.transcoder.Transcode(ctx, result.Path, job.MP3Path, req.Quality); err != nil {
			wrapped := services.Wrap(services.ErrEncoder, StageTranscoding, "transcode", "encode to mp3", err)
			p.notifyFailure(req, StageTranscoding, wrapped)
			return media.ArtifactDescriptor{}, wrapped
		}
		mp3Path = job.MP3Path
	}

	measuredKbps := 0
	if p.verifier != nil {
		measuredKbps = p.verifier.Verify(ctx, logger.With(logging.String(logging.FieldStage, StageVerifying)), mp3Path, req.Quality)
	}

	title := req.Title(resolution.Metadata)
	fileName := fmt.Sprintf("%s_%dkbps.mp3", textutil.SanitizeTitle(title), req.Quality.BitrateKbps())
	finalPath, err := p.workspaces.Promote(ws, mp3Path, fileName)
	if err != nil {
		wrapped := services.Wrap(nil, StagePromoting, "promote", "move artifact", err)
		p.notifyFailure(req, StagePromoting, wrapped)
		return media.ArtifactDescriptor{}, wrapped
	}

	artifact := media.ArtifactDescriptor{
		FileName:            fileName,
		FilePath:            finalPath,
		FileSizeBytes:       fileutil.FileSize(finalPath),
		Title:               title,
		RequestedQuality:    req.Quality,
		MeasuredBitrateKbps: measuredKbps,
		ExpiresAt:           time.Now().Add(p.ttl),
	}
	logger.Info("job completed",
		logging.String("file", artifact.FileName),
		logging.Int64("size_bytes", artifact.FileSizeBytes),
		logging.String(logging.FieldStrategy, result.Strategy),
		logging.Int("attempts", len(trail)))

	p.notifyConversion(ws.JobID, req, resolution.Metadata, artifact, result.Strategy, trail)
	return artifact, nil
}

// notifyConversion writes the success record. Sink errors are logged
// and swallowed; the artifact already exists and the caller gets it
// regardless.
func (p *Pipeline) notifyConversion(jobID string, req media.DownloadRequest, meta media.VideoMetadata, artifact media.ArtifactDescriptor, strategy string, attempts []Attempt) {
	if p.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.sink.RecordConversion(ctx, store.Conversion{
		JobID:               jobID,
		SourceURL:           req.SourceURL,
		Title:               artifact.Title,
		FileName:            artifact.FileName,
		FileSizeBytes:       artifact.FileSizeBytes,
		Quality:             req.Quality,
		MeasuredBitrateKbps: artifact.MeasuredBitrateKbps,
		Strategy:            strategy,
		DurationSeconds:     meta.DurationSeconds,
		ExpiresAt:           artifact.ExpiresAt,
	})
	if err != nil {
		p.logger.Warn("history write failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("attempts", len(attempts)),
			logging.Error(err))
	}
}

func (p *Pipeline) notifyFailure(req media.DownloadRequest, stage string, jobErr error) {
	if p.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.sink.RecordFailure(ctx, store.Failure{
		SourceURL: req.SourceURL,
		Stage:     stage,
		Reason:    jobErr.Error(),
	})
	if err != nil {
		p.logger.Warn("failure record write failed", logging.Error(err))
	}
}
