package testutil

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"
	"testing"
)

// AssertFileExists fails the test if the file does not exist.
func (w *Workspace) AssertFileExists(relPath string) {
	w.t.Helper()
	if _, err := os.Stat(w.Join(relPath)); os.IsNotExist(err) {
		w.t.Errorf("expected file to exist: %s", relPath)
	}
}

// AssertFileNotExists fails the test if the file exists.
func (w *Workspace) AssertFileNotExists(relPath string) {
	w.t.Helper()
	if _, err := os.Stat(w.Join(relPath)); err == nil {
		w.t.Errorf("expected file to not exist: %s", relPath)
	}
}

// AssertFileContains fails the test if the file does not contain the substring.
func (w *Workspace) AssertFileContains(relPath, substr string) {
	w.t.Helper()
	content := w.ReadFile(relPath)
	if !strings.Contains(content, substr) {
		w.t.Errorf("expected file %s to contain %q, got:\n%s", relPath, substr, content)
	}
}

// AssertFileEquals fails the test if the file content differs from want.
func (w *Workspace) AssertFileEquals(relPath, want string) {
	w.t.Helper()
	if got := w.ReadFile(relPath); got != want {
		w.t.Errorf("file %s:\ngot:  %q\nwant: %q", relPath, got, want)
	}
}

// AssertDirExists fails the test if the directory does not exist.
func (w *Workspace) AssertDirExists(relPath string) {
	w.t.Helper()
	info, err := os.Stat(w.Join(relPath))
	if os.IsNotExist(err) {
		w.t.Errorf("expected directory to exist: %s", relPath)
		return
	}
	if !info.IsDir() {
		w.t.Errorf("expected %s to be a directory, but it's a file", relPath)
	}
}

// AssertJSONEqual fails the test if got and want do not decode to the same
// JSON value.
func AssertJSONEqual(t *testing.T, got, want string) {
	t.Helper()
	var g, w interface{}
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("got is not JSON: %v\n%s", err, got)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("want is not JSON: %v\n%s", err, want)
	}
	if !reflect.DeepEqual(g, w) {
		t.Errorf("JSON mismatch:\ngot:  %s\nwant: %s", got, want)
	}
}
