// Package workspace manages the per-job scratch directory. Every job
// gets its own directory under the work root; intermediate files never
// touch the completed directory until Promote moves the finished MP3
// across in one step.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"audiopress/internal/fileutil"
)

// Workspace is one job's scratch directory.
type Workspace struct {
	JobID string
	Dir   string
}

// Manager creates and promotes job workspaces.
type Manager struct {
	workRoot      string
	completedRoot string
}

func NewManager(workRoot, completedRoot string) *Manager {
	return &Manager{workRoot: workRoot, completedRoot: completedRoot}
}

// Create allocates a fresh job directory. The returned job ID doubles
// as the correlation ID in logs.
func (m *Manager) Create() (*Workspace, error) {
	jobID := uuid.NewString()
	dir := filepath.Join(m.workRoot, "job-"+jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", dir, err)
	}
	return &Workspace{JobID: jobID, Dir: dir}, nil
}

// Path returns the location for a scratch file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Promote moves a finished file out of the workspace into the completed
// directory under fileName and returns its final path.
func (m *Manager) Promote(w *Workspace, srcPath, fileName string) (string, error) {
	if err := os.MkdirAll(m.completedRoot, 0o755); err != nil {
		return "", fmt.Errorf("create completed dir: %w", err)
	}
	dst := filepath.Join(m.completedRoot, fileName)
	if err := fileutil.MoveFile(srcPath, dst); err != nil {
		return "", fmt.Errorf("promote %s: %w", fileName, err)
	}
	return dst, nil
}

// Cleanup removes the workspace and everything left inside it. Safe to
// call after Promote and on every failure path.
func (w *Workspace) Cleanup() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("cleanup workspace %s: %w", w.Dir, err)
	}
	return nil
}
