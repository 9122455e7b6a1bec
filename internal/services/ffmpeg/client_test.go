package ffmpeg

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"audiopress/internal/media"
	"audiopress/internal/services/runner"
)

type fakeRunner struct {
	calls []runner.Command
	errs  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	f.calls = append(f.calls, cmd)
	if err, ok := f.errs[cmd.Binary]; ok && err != nil {
		return runner.Result{Stderr: []byte("encoder stderr"), ExitCode: 1}, err
	}
	return runner.Result{}, nil
}

func argPair(args []string, flag string) (string, bool) {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1], true
		}
	}
	return "", false
}

func TestTranscodePinsConstantBitrate(t *testing.T) {
	fake := &fakeRunner{}
	client := New("ffmpeg", WithRunner(fake))

	if err := client.Transcode(context.Background(), "in.webm", "out.mp3", media.Quality128); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	args := fake.calls[0].Args
	for _, flag := range []string{"-b:a", "-minrate", "-maxrate"} {
		value, ok := argPair(args, flag)
		if !ok {
			t.Fatalf("missing %s in %v", flag, args)
		}
		if value != "128k" {
			t.Fatalf("%s = %s, want 128k", flag, value)
		}
	}
	if value, _ := argPair(args, "-ar"); value != "44100" {
		t.Fatalf("sample rate = %s", value)
	}
	if value, _ := argPair(args, "-ac"); value != "2" {
		t.Fatalf("channels = %s", value)
	}
	if value, _ := argPair(args, "-map_metadata"); value != "-1" {
		t.Fatalf("metadata not stripped: %s", value)
	}
	if value, _ := argPair(args, "-write_xing"); value != "0" {
		t.Fatalf("xing header not suppressed: %s", value)
	}
}

func TestTranscode320(t *testing.T) {
	fake := &fakeRunner{}
	client := New("", WithRunner(fake))
	if err := client.Transcode(context.Background(), "in.m4a", "out.mp3", media.Quality320); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if value, _ := argPair(fake.calls[0].Args, "-b:a"); value != "320k" {
		t.Fatalf("bitrate = %s, want 320k", value)
	}
}

func TestTranscodeRetriesPathLookupOnceWhenOverrideMissing(t *testing.T) {
	fake := &fakeRunner{errs: map[string]error{"/opt/custom/ffmpeg": exec.ErrNotFound}}
	client := New("/opt/custom/ffmpeg", WithRunner(fake))

	if err := client.Transcode(context.Background(), "in.webm", "out.mp3", media.Quality128); err != nil {
		t.Fatalf("Transcode with fallback: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(fake.calls))
	}
	if fake.calls[1].Binary != "ffmpeg" {
		t.Fatalf("fallback binary = %q", fake.calls[1].Binary)
	}
}

func TestTranscodeReportsEncoderNotFoundAfterFallback(t *testing.T) {
	fake := &fakeRunner{errs: map[string]error{
		"/opt/custom/ffmpeg": exec.ErrNotFound,
		"ffmpeg":             exec.ErrNotFound,
	}}
	client := New("/opt/custom/ffmpeg", WithRunner(fake))

	err := client.Transcode(context.Background(), "in.webm", "out.mp3", media.Quality128)
	if !errors.Is(err, ErrEncoderNotFound) {
		t.Fatalf("expected ErrEncoderNotFound, got %v", err)
	}
}

func TestTranscodeSurfacesEncoderFailure(t *testing.T) {
	fake := &fakeRunner{errs: map[string]error{"ffmpeg": errors.New("exit status 1")}}
	client := New("ffmpeg", WithRunner(fake))

	err := client.Transcode(context.Background(), "in.webm", "out.mp3", media.Quality128)
	if err == nil {
		t.Fatal("expected encoder failure")
	}
	if errors.Is(err, ErrEncoderNotFound) {
		t.Fatal("plain failure misclassified as not-found")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("plain failure must not retry, got %d calls", len(fake.calls))
	}
}
