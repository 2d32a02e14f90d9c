package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fsys := OSFileSystem{}
	dir := t.TempDir()

	if !fsys.Exists(dir) {
		t.Error("Exists should return true for the temp dir")
	}
	if fsys.Exists(filepath.Join(dir, "missing.json")) {
		t.Error("Exists should return false for a missing file")
	}
}

func TestWriteFileAtomic_OS(t *testing.T) {
	fsys := OSFileSystem{}
	dir := t.TempDir()
	target := filepath.Join(dir, "traffic_status.json")

	if err := WriteFileAtomic(fsys, target, []byte(`{"v":1}`), 0644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(fsys, target, []byte(`{"v":2}`), 0644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := fsys.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("content = %q, want the second write", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file to remain, found %d entries", len(entries))
	}
}

func TestWriteFileAtomic_UnwritableDir(t *testing.T) {
	fsys := OSFileSystem{}
	target := filepath.Join(t.TempDir(), "no", "such", "dir", "status.json")
	if err := WriteFileAtomic(fsys, target, []byte("{}"), 0644); err == nil {
		t.Fatal("expected an error writing into a missing directory")
	}
}

func TestWriteFileAtomic_Memory(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := WriteFileAtomic(m, "/srv/status.json", []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	files := m.Files()
	if len(files) != 1 || files[0] != "/srv/status.json" {
		t.Errorf("files = %v, want only /srv/status.json", files)
	}
}

func TestWriteFileAtomic_RenameFailureCleansUp(t *testing.T) {
	m := NewMemoryFileSystem()
	m.RenameErr = errors.New("read-only filesystem")

	err := WriteFileAtomic(m, "/srv/status.json", []byte("{}"), 0644)
	if err == nil {
		t.Fatal("expected rename failure")
	}
	if !errors.Is(err, m.RenameErr) {
		t.Errorf("error %v should wrap the rename failure", err)
	}
	if len(m.Files()) != 0 {
		t.Errorf("temp file left behind: %v", m.Files())
	}
}

func TestMemoryFileSystem_WriteErr(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteErr = fs.ErrPermission

	err := m.WriteFile("/a", []byte("x"), 0644)
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("err = %v, want permission error", err)
	}
	if m.Writes() != 0 {
		t.Errorf("writes = %d, want 0", m.Writes())
	}
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	m := NewMemoryFileSystem()
	data := []byte("original")
	if err := m.WriteFile("/f", data, 0644); err != nil {
		t.Fatal(err)
	}
	data[0] = 'X'

	got, _ := m.ReadFile("/f")
	if string(got) != "original" {
		t.Errorf("stored data changed through caller slice: %q", got)
	}
	got[0] = 'Y'
	again, _ := m.ReadFile("/f")
	if string(again) != "original" {
		t.Errorf("stored data changed through returned slice: %q", again)
	}
}

func TestMemoryFileSystem_RenameMissing(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.Rename("/nope", "/target"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestMemoryFileSystem_MkdirAllAndRemove(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		if !m.Exists(p) {
			t.Errorf("%s should exist", p)
		}
	}
	if err := m.Remove("/a/b/c"); err != nil {
		t.Fatal(err)
	}
	if m.Exists("/a/b/c") {
		t.Error("/a/b/c should be removed")
	}
	if err := m.Remove("/a/b/c"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second remove err = %v, want ErrNotExist", err)
	}
}
