package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a private temp directory for one task
type Workspace struct {
	dir string
}

// NewWorkspace creates root/<taskID>
func NewWorkspace(root, taskID string) (*Workspace, error) {
	if taskID == "" || filepath.Base(taskID) != taskID {
		return nil, fmt.Errorf("invalid task id %q", taskID)
	}
	dir := filepath.Join(root, taskID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string { return w.dir }

// Path returns name inside the workspace
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Remove deletes the workspace and everything in it
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.dir)
}
