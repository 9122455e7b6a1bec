package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"audiopress/internal/logging"
	"audiopress/internal/media"
	"audiopress/internal/services/runner"
)

// bitrateToleranceKbps is how far a measured bitrate may drift from the
// requested target before verification logs a warning. Verification is
// advisory only; a drifting encode still ships.
const bitrateToleranceKbps = 50

const defaultTimeout = 30 * time.Second

type Client struct {
	binary  string
	run     runner.Runner
	timeout time.Duration
}

type Option func(*Client)

func WithRunner(run runner.Runner) Option {
	return func(c *Client) { c.run = run }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func New(binary string, opts ...Option) *Client {
	if binary == "" {
		binary = "ffprobe"
	}
	client := &Client{binary: binary, run: runner.New(), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type probeFormat struct {
	BitRate  string `json:"bit_rate"`
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	BitRate   string `json:"bit_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// Report describes what ffprobe saw in an artifact.
type Report struct {
	BitrateKbps     int
	DurationSeconds float64
	Codec           string
}

// Inspect probes path and returns the measured audio bitrate. A bitrate
// of zero means ffprobe produced no usable figure; callers treat that as
// "unknown", not as an error.
func (c *Client) Inspect(ctx context.Context, path string) (Report, error) {
	result, err := c.run.Run(ctx, runner.Command{
		Binary: c.binary,
		Args: []string{
			"-v", "error",
			"-hide_banner",
			"-show_format",
			"-show_streams",
			"-of", "json",
			"--",
			path,
		},
		Timeout: c.timeout,
	})
	if err != nil {
		return Report{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var out probeOutput
	if err := json.Unmarshal(result.Stdout, &out); err != nil {
		return Report{}, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}

	report := Report{}
	for _, stream := range out.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		report.Codec = stream.CodecName
		report.BitrateKbps = parseKbps(stream.BitRate)
		break
	}
	if report.BitrateKbps == 0 {
		report.BitrateKbps = parseKbps(out.Format.BitRate)
	}
	if seconds, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		report.DurationSeconds = seconds
	}
	return report, nil
}

// Verify inspects path and compares the measured bitrate against the
// requested quality. A probe failure or an off-target reading never
// fails the job; both are logged and the measured figure (zero when
// unknown) is returned for the artifact record.
func (c *Client) Verify(ctx context.Context, logger *slog.Logger, path string, quality media.Quality) int {
	report, err := c.Inspect(ctx, path)
	if err != nil {
		logger.Warn("bitrate verification skipped", logging.Error(err))
		return 0
	}
	target := quality.BitrateKbps()
	diff := report.BitrateKbps - target
	if diff < 0 {
		diff = -diff
	}
	if report.BitrateKbps != 0 && diff > bitrateToleranceKbps {
		logger.Warn("artifact bitrate off target",
			slog.Int("measured_kbps", report.BitrateKbps),
			slog.Int("target_kbps", target))
	}
	return report.BitrateKbps
}

func parseKbps(raw string) int {
	if raw == "" {
		return 0
	}
	bps, err := strconv.Atoi(raw)
	if err != nil || bps <= 0 {
		return 0
	}
	return bps / 1000
}
