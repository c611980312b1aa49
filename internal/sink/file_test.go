package sink

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFile_WriteWindow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "captions.txt")
	f := NewFile(path)

	if err := f.WriteWindow("hello world"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world\n" {
		t.Errorf("file contents = %q", data)
	}
}

func TestFile_ReplacesContents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "captions.txt")
	f := NewFile(path)

	if err := f.WriteWindow("first window with several lines\nsecond line"); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteWindow("short"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "short\n" {
		t.Errorf("file contents = %q, want full replacement", data)
	}
}

func TestFile_NoTempFilesLeftBehind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "captions.txt"))

	for i := 0; i < 3; i++ {
		if err := f.WriteWindow("window"); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the sink file", len(entries))
	}
}

func TestFile_MissingParentDir(t *testing.T) {
	t.Parallel()

	f := NewFile(filepath.Join(t.TempDir(), "missing", "captions.txt"))
	if err := f.WriteWindow("x"); err == nil {
		t.Error("expected an error for a missing parent directory")
	}
}
