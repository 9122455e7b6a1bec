package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// StubBinaries writes always-succeeding stub executables for the given
// names and prepends their directory to PATH for the duration of the
// test. With no names, the default external tools are stubbed.
func StubBinaries(t testing.TB, names ...string) string {
	t.Helper()

	if len(names) == 0 {
		names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
	}
	binDir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
	return binDir
}
