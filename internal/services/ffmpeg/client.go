package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"audiopress/internal/media"
	"audiopress/internal/services/runner"
)

// ErrEncoderNotFound reports that no usable encoder binary could be
// resolved, even after the PATH fallback.
var ErrEncoderNotFound = errors.New("encoder binary not found")

// Client wraps the ffmpeg CLI.
type Client struct {
	binary  string
	run     runner.Runner
	timeout time.Duration
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

// WithTimeout bounds a single transcode run.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// New constructs an encoder client. An empty binary defaults to "ffmpeg".
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	client := &Client{
		binary:  binary,
		run:     runner.New(),
		timeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Transcode converts inputPath into a constant-bitrate MP3 at outputPath.
func (c *Client) Transcode(ctx context.Context, inputPath, outputPath string, quality media.Quality) error {
	err := c.invoke(ctx, c.binary, inputPath, outputPath, quality)
	if err == nil {
		return nil
	}
	// A configured override that is missing gets exactly one retry with
	// the unqualified name from PATH.
	if errors.Is(err, exec.ErrNotFound) && c.binary != "ffmpeg" {
		if retryErr := c.invoke(ctx, "ffmpeg", inputPath, outputPath, quality); retryErr == nil {
			return nil
		} else if errors.Is(retryErr, exec.ErrNotFound) {
			return fmt.Errorf("%w: tried %q and PATH", ErrEncoderNotFound, c.binary)
		} else {
			return retryErr
		}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrEncoderNotFound, c.binary)
	}
	return err
}

func (c *Client) invoke(ctx context.Context, binary, inputPath, outputPath string, quality media.Quality) error {
	rate := fmt.Sprintf("%dk", quality.BitrateKbps())
	args := []string{
		"-y",
		"-loglevel", "error",
		"-nostdin",
		"-i", inputPath,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", rate,
		"-minrate", rate,
		"-maxrate", rate,
		"-ar", "44100",
		"-ac", "2",
		"-map_metadata", "-1",
		"-write_xing", "0",
		outputPath,
	}
	result, err := c.run.Run(ctx, runner.Command{Binary: binary, Args: args, Timeout: c.timeout})
	if err != nil {
		if tail := result.StderrTail(); tail != "" {
			return fmt.Errorf("ffmpeg transcode: %w: %s", err, tail)
		}
		return fmt.Errorf("ffmpeg transcode: %w", err)
	}
	return nil
}
