package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"audiopress/internal/services/runner"
)

type fakeRunner struct {
	calls   []runner.Command
	results map[string]error
	stdout  map[string]string
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	f.calls = append(f.calls, cmd)
	if err, ok := f.results[cmd.Binary]; ok && err != nil {
		return runner.Result{ExitCode: 1}, err
	}
	return runner.Result{Stdout: []byte(f.stdout[cmd.Binary])}, nil
}

func TestProbeBinariesMarksFailuresUnavailable(t *testing.T) {
	fake := &fakeRunner{
		results: map[string]error{"youtube-dl": errors.New("exec failed")},
		stdout:  map[string]string{"yt-dlp": "2026.08.10\n"},
	}

	results := ProbeBinaries(context.Background(), fake, ExtractorTools(), time.Second)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Version != "2026.08.10" {
		t.Fatalf("yt-dlp status unexpected: %#v", results[0])
	}
	if results[1].Available {
		t.Fatalf("expected youtube-dl unavailable: %#v", results[1])
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail for failed probe")
	}
}

func TestProbeBinariesUsesVersionArgument(t *testing.T) {
	fake := &fakeRunner{stdout: map[string]string{"yt-dlp": "ok"}}
	ProbeBinaries(context.Background(), fake, ExtractorTools()[:1], time.Second)
	if len(fake.calls) != 1 {
		t.Fatalf("expected one probe call, got %d", len(fake.calls))
	}
	call := fake.calls[0]
	if len(call.Args) != 1 || call.Args[0] != "--version" {
		t.Fatalf("unexpected probe args: %v", call.Args)
	}
	if call.Timeout != time.Second {
		t.Fatalf("probe timeout not applied: %v", call.Timeout)
	}
}

func TestProberCachesReportAndPrefersFirstAvailable(t *testing.T) {
	fake := &fakeRunner{
		results: map[string]error{"yt-dlp": errors.New("missing")},
		stdout:  map[string]string{"youtube-dl": "2021.12.17"},
	}
	prober := NewProber(fake, nil, time.Second)

	tool, ok := prober.First(context.Background())
	if !ok {
		t.Fatal("expected a tool")
	}
	if tool.Name != "youtube-dl" {
		t.Fatalf("expected legacy tool fallback, got %q", tool.Name)
	}

	probesAfterFirst := len(fake.calls)
	prober.First(context.Background())
	prober.Report(context.Background())
	if len(fake.calls) != probesAfterFirst {
		t.Fatalf("expected cached report, probe count went %d -> %d", probesAfterFirst, len(fake.calls))
	}
}

func TestProberNoToolsAvailable(t *testing.T) {
	fake := &fakeRunner{results: map[string]error{
		"yt-dlp":     errors.New("missing"),
		"youtube-dl": errors.New("missing"),
	}}
	prober := NewProber(fake, nil, time.Second)
	if _, ok := prober.First(context.Background()); ok {
		t.Fatal("expected no tool available")
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if !results[0].Available {
		t.Fatalf("expected first requirement available: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary unavailable with detail: %#v", results[1])
	}
}

func TestCheckFFmpegHonoursOverride(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "ffmpeg-custom")
	if err := os.WriteFile(override, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := CheckFFmpeg(override)
	if !status.Available || status.Command != override {
		t.Fatalf("override not honoured: %#v", status)
	}

	status = CheckFFmpeg(filepath.Join(dir, "missing"))
	if status.Available && status.Command == filepath.Join(dir, "missing") {
		t.Fatalf("missing override should fall back: %#v", status)
	}
}
