package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileReplacesContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	if err := WriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := WriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Expected 'second', got %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected only the target file to remain, got %d entries", len(entries))
	}
}

func TestWriteFileFailedRenameKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	if err := os.WriteFile(path, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	rename = func(string, string) error { return errors.New("disk unplugged") }
	defer func() { rename = os.Rename }()

	if err := WriteFile(path, []byte("replacement"), 0644); err == nil {
		t.Fatal("Expected error from failed rename")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("Expected original contents to survive, got %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected temp file to be cleaned up, got %d entries", len(entries))
	}
}

func TestWriteFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone", "data.json")
	if err := WriteFile(path, []byte("x"), 0644); err == nil {
		t.Error("Expected error writing into a missing directory")
	}
}
