package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateAllocatesDistinctJobDirs(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(root, filepath.Join(root, "completed"))

	first, err := manager.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := manager.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Dir == second.Dir {
		t.Fatal("workspaces must not collide")
	}
	if !strings.HasPrefix(filepath.Base(first.Dir), "job-") {
		t.Fatalf("unexpected dir name %q", first.Dir)
	}
	if info, err := os.Stat(first.Dir); err != nil || !info.IsDir() {
		t.Fatalf("workspace dir missing: %v", err)
	}
}

func TestPromoteMovesFileOutOfWorkspace(t *testing.T) {
	root := t.TempDir()
	completed := filepath.Join(root, "completed")
	manager := NewManager(filepath.Join(root, "work"), completed)
	if err := os.MkdirAll(filepath.Join(root, "work"), 0o755); err != nil {
		t.Fatal(err)
	}

	ws, err := manager.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	src := ws.Path("audio.mp3")
	if err := os.WriteFile(src, []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	final, err := manager.Promote(ws, src, "Track_Title.mp3")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if final != filepath.Join(completed, "Track_Title.mp3") {
		t.Fatalf("final path = %q", final)
	}
	if _, err := os.Stat(final); err != nil {
		t.Fatalf("promoted file missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source still present after promote")
	}
}

func TestCleanupRemovesEverything(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(root, filepath.Join(root, "completed"))

	ws, err := manager.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.WriteFile(ws.Path("source.raw"), []byte("leftover"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatal("workspace survived cleanup")
	}
	// idempotent
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
}
