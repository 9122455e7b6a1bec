package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"audiopress/internal/extractor"
	"audiopress/internal/logging"
	"audiopress/internal/media"
	"audiopress/internal/resolver"
	"audiopress/internal/services"
	"audiopress/internal/store"
	"audiopress/internal/workspace"
)

const watchURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeResolver struct {
	resolution resolver.Resolution
	attempts   []resolver.Attempt
	err        error
	calls      int
}

func (f *fakeResolver) Resolve(context.Context, string) (resolver.Resolution, []resolver.Attempt, error) {
	f.calls++
	return f.resolution, f.attempts, f.err
}

type fakeExtractor struct {
	kind    extractor.Kind
	payload string
	err     error
	calls   int
}

func (f *fakeExtractor) Extract(_ context.Context, job extractor.Job) (extractor.Result, []extractor.Attempt, error) {
	f.calls++
	if f.err != nil {
		return extractor.Result{}, []extractor.Attempt{{Strategy: "targeted", Err: f.err}}, f.err
	}
	path := job.RawPath
	if f.kind == extractor.FinalArtifact {
		path = job.MP3Path
	}
	if err := os.WriteFile(path, []byte(f.payload), 0o644); err != nil {
		return extractor.Result{}, nil, err
	}
	strategy := "targeted"
	if f.kind == extractor.FinalArtifact {
		strategy = "tool"
	}
	return extractor.Result{Kind: f.kind, Path: path, Strategy: strategy}, []extractor.Attempt{{Strategy: strategy}}, nil
}

type fakeTranscoder struct {
	err   error
	calls int
	last  media.Quality
}

func (f *fakeTranscoder) Transcode(_ context.Context, inputPath, outputPath string, quality media.Quality) error {
	f.calls++
	f.last = quality
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, append([]byte("mp3:"), data...), 0o644)
}

type fakeVerifier struct{ kbps int }

func (f *fakeVerifier) Verify(context.Context, *slog.Logger, string, media.Quality) int {
	return f.kbps
}

type fakeSink struct {
	conversions []store.Conversion
	failures    []store.Failure
	err         error
}

func (f *fakeSink) RecordConversion(_ context.Context, conv store.Conversion) error {
	f.conversions = append(f.conversions, conv)
	return f.err
}

func (f *fakeSink) RecordFailure(_ context.Context, failure store.Failure) error {
	f.failures = append(f.failures, failure)
	return f.err
}

type harness struct {
	pipeline  *Pipeline
	resolver  *fakeResolver
	extractor *fakeExtractor
	encoder   *fakeTranscoder
	sink      *fakeSink
	workRoot  string
	completed string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		resolver: &fakeResolver{
			resolution: resolver.Resolution{
				Metadata: media.VideoMetadata{Title: "Hello World (Official Video)", DurationSeconds: 214},
			},
			attempts: []resolver.Attempt{{Strategy: "default", Err: errors.New("403 forbidden")}},
		},
		extractor: &fakeExtractor{kind: extractor.RawStream, payload: "opus-bytes"},
		encoder:   &fakeTranscoder{},
		sink:      &fakeSink{},
		workRoot:  filepath.Join(root, "work"),
		completed: filepath.Join(root, "completed"),
	}
	if err := os.MkdirAll(h.workRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	p, err := New(Options{
		Resolver:    h.resolver,
		Extractor:   h.extractor,
		Transcoder:  h.encoder,
		Verifier:    &fakeVerifier{kbps: 128},
		Sink:        h.sink,
		Workspaces:  workspace.NewManager(h.workRoot, h.completed),
		ArtifactTTL: 5 * 24 * time.Hour,
		Logger:      logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.pipeline = p
	return h
}

func (h *harness) workspacesLeft(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(h.workRoot)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestProcessRawStreamJob(t *testing.T) {
	h := newHarness(t)
	req := media.DownloadRequest{SourceURL: watchURL, Quality: media.Quality320}

	artifact, err := h.pipeline.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if artifact.FileName != "Hello_World_Official_Video_320kbps.mp3" {
		t.Fatalf("file name = %q", artifact.FileName)
	}
	if artifact.DownloadPath() != "/downloads/Hello_World_Official_Video_320kbps.mp3" {
		t.Fatalf("download path = %q", artifact.DownloadPath())
	}
	if h.encoder.calls != 1 || h.encoder.last != media.Quality320 {
		t.Fatalf("transcoder calls=%d quality=%s", h.encoder.calls, h.encoder.last)
	}
	data, err := os.ReadFile(artifact.FilePath)
	if err != nil || string(data) != "mp3:opus-bytes" {
		t.Fatalf("artifact payload = %q, err = %v", data, err)
	}
	if artifact.FileSizeBytes != int64(len(data)) {
		t.Fatalf("size = %d, want %d", artifact.FileSizeBytes, len(data))
	}
	if artifact.MeasuredBitrateKbps != 128 {
		t.Fatalf("measured = %d", artifact.MeasuredBitrateKbps)
	}
	if remaining := time.Until(artifact.ExpiresAt); remaining < 4*24*time.Hour {
		t.Fatalf("expiry too soon: %s", remaining)
	}
	if h.workspacesLeft(t) != 0 {
		t.Fatal("workspace not cleaned up after success")
	}
	if len(h.sink.conversions) != 1 {
		t.Fatalf("sink conversions = %d", len(h.sink.conversions))
	}
	if h.sink.conversions[0].Strategy != "targeted" {
		t.Fatalf("recorded strategy = %q", h.sink.conversions[0].Strategy)
	}
}

func TestProcessFinalArtifactSkipsTranscode(t *testing.T) {
	h := newHarness(t)
	h.extractor.kind = extractor.FinalArtifact
	h.extractor.payload = "already-mp3"

	artifact, err := h.pipeline.Process(context.Background(), media.DownloadRequest{SourceURL: watchURL, Quality: media.Quality128})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if h.encoder.calls != 0 {
		t.Fatal("transcoder must not run on a finished artifact")
	}
	data, _ := os.ReadFile(artifact.FilePath)
	if string(data) != "already-mp3" {
		t.Fatalf("payload = %q", data)
	}
}

func TestProcessTitleOverride(t *testing.T) {
	h := newHarness(t)
	req := media.DownloadRequest{SourceURL: watchURL, Quality: media.Quality128, RequestedTitle: "Café del Mar – Énergie"}

	artifact, err := h.pipeline.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if artifact.FileName != "Cafe_del_Mar_Energie_128kbps.mp3" {
		t.Fatalf("file name = %q", artifact.FileName)
	}
	if artifact.Title != "Café del Mar – Énergie" {
		t.Fatalf("title = %q", artifact.Title)
	}
}

func TestProcessRejectsInvalidRequestBeforeAnyWork(t *testing.T) {
	h := newHarness(t)
	req := media.DownloadRequest{SourceURL: "https://vimeo.com/12345", Quality: media.Quality128}

	_, err := h.pipeline.Process(context.Background(), req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if h.resolver.calls != 0 || h.extractor.calls != 0 {
		t.Fatal("invalid request must not reach resolve or extract")
	}
	if len(h.sink.failures) != 1 || h.sink.failures[0].Stage != StageValidating {
		t.Fatalf("failures = %+v", h.sink.failures)
	}
}

func TestProcessLengthGateStopsBeforeExtraction(t *testing.T) {
	h := newHarness(t)
	h.resolver.err = services.Wrap(services.ErrTooLong, "resolve", "length gate", "video runs 15m0s, limit 10m0s", nil)

	_, err := h.pipeline.Process(context.Background(), media.DownloadRequest{SourceURL: watchURL, Quality: media.Quality128})
	if !errors.Is(err, services.ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	if h.extractor.calls != 0 {
		t.Fatal("over-limit video must not be extracted")
	}
	if h.workspacesLeft(t) != 0 {
		t.Fatal("workspace leaked on gated job")
	}
}

func TestProcessExtractionFailureCleansUp(t *testing.T) {
	h := newHarness(t)
	h.extractor.err = services.Wrap(services.ErrExtraction, "extract", "chain", "all strategies exhausted", errors.New("403"))

	_, err := h.pipeline.Process(context.Background(), media.DownloadRequest{SourceURL: watchURL, Quality: media.Quality128})
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if h.workspacesLeft(t) != 0 {
		t.Fatal("workspace leaked on failed job")
	}
	if entries, _ := os.ReadDir(h.completed); len(entries) != 0 {
		t.Fatal("failed job must leave nothing in the completed dir")
	}
	if len(h.sink.failures) != 1 || h.sink.failures[0].Stage != StageExtracting {
		t.Fatalf("failures = %+v", h.sink.failures)
	}
}

func TestProcessTranscodeFailureIsTaggedEncoder(t *testing.T) {
	h := newHarness(t)
	h.encoder.err = errors.New("exit status 1")

	_, err := h.pipeline.Process(context.Background(), media.DownloadRequest{SourceURL: watchURL, Quality: media.Quality128})
	if !errors.Is(err, services.ErrEncoder) {
		t.Fatalf("expected ErrEncoder, got %v", err)
	}
	if h.workspacesLeft(t) != 0 {
		t.Fatal("workspace leaked on encoder failure")
	}
}

func TestProcessSinkFailureDoesNotFailJob(t *testing.T) {
	h := newHarness(t)
	h.sink.err = errors.New("disk full")

	artifact, err := h.pipeline.Process(context.Background(), media.DownloadRequest{SourceURL: watchURL, Quality: media.Quality128})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, statErr := os.Stat(artifact.FilePath); statErr != nil {
		t.Fatalf("artifact missing: %v", statErr)
	}
}

func TestMetadataValidatesFirst(t *testing.T) {
	h := newHarness(t)

	if _, err := h.pipeline.Metadata(context.Background(), "not a url"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if h.resolver.calls != 0 {
		t.Fatal("invalid URL must not be resolved")
	}

	meta, err := h.pipeline.Metadata(context.Background(), watchURL)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.Title != "Hello World (Official Video)" {
		t.Fatalf("title = %q", meta.Title)
	}
}
