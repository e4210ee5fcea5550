package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveRoundTrip(t *testing.T) {
	src := t.TempDir()

	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "leaf.txt"), []byte("leaf"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive, err := ArchiveDirectory(src)
	if err != nil {
		t.Fatalf("ArchiveDirectory failed: %v", err)
	}

	dst := t.TempDir()
	if err := ExtractDirectory(dst, archive); err != nil {
		t.Fatalf("ExtractDirectory failed: %v", err)
	}

	top, err := os.ReadFile(filepath.Join(dst, "top.txt"))
	if err != nil || string(top) != "top" {
		t.Errorf("top.txt = %q, %v; expected \"top\", nil", top, err)
	}

	leaf, err := os.ReadFile(filepath.Join(dst, "nested", "leaf.txt"))
	if err != nil || string(leaf) != "leaf" {
		t.Errorf("nested/leaf.txt = %q, %v; expected \"leaf\", nil", leaf, err)
	}
}

func TestArchiveEmptyDirectory(t *testing.T) {
	src := t.TempDir()
	if err := os.Mkdir(filepath.Join(src, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	archive, err := ArchiveDirectory(src)
	if err != nil {
		t.Fatalf("ArchiveDirectory failed: %v", err)
	}

	dst := t.TempDir()
	if err := ExtractDirectory(dst, archive); err != nil {
		t.Fatalf("ExtractDirectory failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dst, "empty"))
	if err != nil {
		t.Fatalf("expected empty directory to be recreated: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("expected %q to be a directory", filepath.Join(dst, "empty"))
	}
}
