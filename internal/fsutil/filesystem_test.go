package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_ReadFile(t *testing.T) {
	data, err := OSFileSystem{}.ReadFile("filesystem.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty content")
	}
	if _, err := (OSFileSystem{}).ReadFile("nonexistent_file_xyz.go"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestOSFileSystem_WriteFileReplaces(t *testing.T) {
	osfs := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "positions.json")

	if err := osfs.WriteFile(path, []byte(`{"a":1}`), 0644); err != nil {
		t.Fatalf("first WriteFile failed: %v", err)
	}
	if err := osfs.WriteFile(path, []byte(`{}`), 0600); err != nil {
		t.Fatalf("second WriteFile failed: %v", err)
	}

	data, err := osfs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{}` {
		t.Errorf("expected replaced content, got %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left behind, got %d entries", len(entries))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestOSFileSystem_WriteFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "positions.json")
	if err := (OSFileSystem{}).WriteFile(path, []byte(`{}`), 0644); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}

func TestMemoryFileSystem(t *testing.T) {
	mfs := NewMemoryFileSystem()

	data := []byte(`{"uivelo":[]}`)
	if err := mfs.WriteFile("./snapshots/a.json", data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data[0] = 'x'

	got, err := mfs.ReadFile("snapshots/a.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != `{"uivelo":[]}` {
		t.Errorf("got %q, stored data must not alias the caller's slice", got)
	}
	got[0] = 'y'
	if again, _ := mfs.ReadFile("snapshots/a.json"); again[0] != '{' {
		t.Error("returned data must not alias the stored file")
	}

	if _, err := mfs.ReadFile("/missing.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
