package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"audiopress/internal/fileutil"
	"audiopress/internal/media"
	"audiopress/internal/services/runner"
)

// Client wraps one discovered extraction tool.
type Client struct {
	binary         string
	run            runner.Runner
	dumpTimeout    time.Duration
	extractTimeout time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(run runner.Runner) Option {
	return func(c *Client) {
		if run != nil {
			c.run = run
		}
	}
}

// WithTimeouts overrides the per-operation deadlines.
func WithTimeouts(dump, extract time.Duration) Option {
	return func(c *Client) {
		if dump > 0 {
			c.dumpTimeout = dump
		}
		if extract > 0 {
			c.extractTimeout = extract
		}
	}
}

// New constructs a client for the given tool binary.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("extraction tool binary required")
	}
	client := &Client{
		binary:         binary,
		run:            runner.New(),
		dumpTimeout:    45 * time.Second,
		extractTimeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type dumpPayload struct {
	Title     string  `json:"title"`
	Uploader  string  `json:"uploader"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail"`
	ViewCount int64   `json:"view_count"`
}

// DumpMetadata asks the tool for the video's structured metadata without
// downloading anything.
func (c *Client) DumpMetadata(ctx context.Context, url string) (media.VideoMetadata, error) {
	args := []string{"-J", "--no-warnings", "--no-playlist", "--skip-download", url}
	result, err := c.run.Run(ctx, runner.Command{Binary: c.binary, Args: args, Timeout: c.dumpTimeout})
	if err != nil {
		return media.VideoMetadata{}, fmt.Errorf("%s metadata dump: %w: %s", c.binary, err, result.StderrTail())
	}

	var payload dumpPayload
	if err := json.Unmarshal(result.Stdout, &payload); err != nil {
		return media.VideoMetadata{}, fmt.Errorf("%s metadata parse: %w", c.binary, err)
	}
	if strings.TrimSpace(payload.Title) == "" {
		return media.VideoMetadata{}, fmt.Errorf("%s metadata dump: empty title", c.binary)
	}
	return media.VideoMetadata{
		Title:           payload.Title,
		DurationSeconds: int(math.Round(payload.Duration)),
		ThumbnailURL:    payload.Thumbnail,
		AuthorName:      payload.Uploader,
		ViewCount:       payload.ViewCount,
	}, nil
}

// ExtractAudio downloads the URL's audio directly into an MP3 at
// outputPath. Quality maps onto the tool's VBR ladder: 320 requests the
// best rung, 128 a medium one.
func (c *Client) ExtractAudio(ctx context.Context, url string, quality media.Quality, outputPath string) error {
	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", qualityFlag(quality),
		"--no-warnings",
		"--no-playlist",
		"-o", outputPath,
		url,
	}
	result, err := c.run.Run(ctx, runner.Command{Binary: c.binary, Args: args, Timeout: c.extractTimeout})
	if err != nil {
		return fmt.Errorf("%s audio extraction: %w: %s", c.binary, err, result.StderrTail())
	}
	if !fileutil.NonEmpty(outputPath) {
		return fmt.Errorf("%s audio extraction: produced no output at %s", c.binary, outputPath)
	}
	return nil
}

func qualityFlag(quality media.Quality) string {
	if quality == media.Quality320 {
		return "0"
	}
	return "5"
}
