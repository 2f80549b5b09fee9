// Package testutil provides reusable test utilities for hubctl tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Workspace is a temporary directory tree used as a scenarios root or
// config directory in tests.
type Workspace struct {
	Path  string
	t     *testing.T
	files map[string]string
}

// NewWorkspace creates a new workspace builder.
// Call Build() to create the actual directory.
func NewWorkspace(t *testing.T) *Workspace {
	t.Helper()
	return &Workspace{
		t:     t,
		files: make(map[string]string),
	}
}

// WithFile adds a file to be written on Build.
func (w *Workspace) WithFile(relPath, content string) *Workspace {
	w.files[relPath] = content
	return w
}

// Build creates the workspace directory and writes all configured files.
func (w *Workspace) Build() *Workspace {
	w.t.Helper()
	w.Path = w.t.TempDir()
	for path, content := range w.files {
		w.WriteFile(path, content)
	}
	return w
}

// Join returns the absolute path of relPath inside the workspace.
func (w *Workspace) Join(relPath string) string {
	return filepath.Join(w.Path, relPath)
}

// WriteFile writes a file to the workspace, creating directories as needed.
func (w *Workspace) WriteFile(relPath, content string) {
	w.t.Helper()
	fullPath := w.Join(relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		w.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}
}

// ReadFile reads a file from the workspace.
func (w *Workspace) ReadFile(relPath string) string {
	w.t.Helper()
	content, err := os.ReadFile(w.Join(relPath))
	if err != nil {
		w.t.Fatalf("failed to read file %s: %v", relPath, err)
	}
	return string(content)
}

// FileExists checks if a file exists in the workspace.
func (w *Workspace) FileExists(relPath string) bool {
	_, err := os.Stat(w.Join(relPath))
	return err == nil
}
