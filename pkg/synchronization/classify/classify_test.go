package classify

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/driftsync/driftsync/pkg/synchronization/message"
)

func TestClassifyFileCreated(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := []RawChangeEvent{
		{Path: "a.txt", Exists: true, IsNew: true, Kind: KindFile, Inode: 1, Ctime: 1, Mtime: 1},
	}
	got := Classify(nil, root, events)
	want := []message.MutationMessage{message.FileCreated("a.txt")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, expected %+v", got, want)
	}
}

func TestClassifyFileEditedReadsContent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("updated"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := []RawChangeEvent{
		{Path: "a.txt", Exists: true, IsNew: false, Kind: KindFile, Inode: 1, Ctime: 2, Mtime: 2},
	}
	got := Classify(nil, root, events)
	want := []message.MutationMessage{message.FileEdited("a.txt", []byte("updated"))}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, expected %+v", got, want)
	}
}

func TestClassifyFileDeleted(t *testing.T) {
	root := t.TempDir()
	events := []RawChangeEvent{
		{Path: "gone.txt", Exists: false, Kind: KindFile, Inode: 5, Ctime: 3, Mtime: 3},
	}
	got := Classify(nil, root, events)
	want := []message.MutationMessage{message.FileDeleted("gone.txt")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, expected %+v", got, want)
	}
}

func TestClassifyDetectsRenameBySharedInode(t *testing.T) {
	root := t.TempDir()
	events := []RawChangeEvent{
		{Path: "old.txt", Exists: false, Kind: KindFile, Inode: 42, Ctime: 1, Mtime: 1},
		{Path: "new.txt", Exists: true, IsNew: false, Kind: KindFile, Inode: 42, Ctime: 2, Mtime: 1},
	}
	got := Classify(nil, root, events)
	want := []message.MutationMessage{message.Rename("old.txt", "new.txt")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, expected %+v", got, want)
	}
}

func TestClassifyEmptyDirectoryCreated(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	events := []RawChangeEvent{
		{Path: "dir", Exists: true, IsNew: true, Kind: KindDirectory, Inode: 7, Ctime: 1, Mtime: 1},
	}
	got := Classify(nil, root, events)
	want := []message.MutationMessage{message.EmptyDirectoryCreated("dir")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, expected %+v", got, want)
	}
}

func TestClassifyDirectoryContentsEdited(t *testing.T) {
	root := t.TempDir()
	events := []RawChangeEvent{
		{Path: "dir", Exists: true, IsNew: false, Kind: KindDirectory, Inode: 7, Ctime: 2, Mtime: 2},
	}
	got := Classify(nil, root, events)
	want := []message.MutationMessage{message.DirectoryContentsEdited("dir")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, expected %+v", got, want)
	}
}
