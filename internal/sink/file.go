// Package sink provides the plain-text output collaborator: a file that
// always holds the joined translated text of the currently visible caption
// window, rewritten on every commit. Downstream tools (OBS text sources,
// tail-based overlays) read it.
//
// Writes are strictly best-effort; a failure is reported to the caller for
// logging but must never affect alignment or segmentation state.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File writes the caption window to a single text file, replacing the
// previous contents atomically (write to a temp file, then rename).
//
// All methods are safe for concurrent use.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a File sink writing to path. The parent directory must
// exist.
func NewFile(path string) *File {
	return &File{path: path}
}

// WriteWindow replaces the file contents with text plus a trailing newline.
func (f *File) WriteWindow(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".captions-*")
	if err != nil {
		return fmt.Errorf("sink: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(text + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sink: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sink: close: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sink: rename: %w", err)
	}
	return nil
}
