package wire

import (
	"reflect"
	"testing"

	"github.com/driftsync/driftsync/pkg/synchronization/core"
	"github.com/driftsync/driftsync/pkg/synchronization/message"
)

func TestManifestRoundTrip(t *testing.T) {
	var sum [core.SHA1Size]byte
	sum[0] = 0xAB
	original := &core.Manifest{Nodes: []core.TreeNode{
		{Path: "a", Kind: core.TreeNodeKindDirectory},
		{Path: "a/b.txt", Kind: core.TreeNodeKindFile, SHA1: sum},
	}}

	decoded, err := DecodeManifest(EncodeManifest(original))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip mismatch: got %+v, expected %+v", decoded, original)
	}
}

func TestRequestsRoundTrip(t *testing.T) {
	original := []message.RequestMessage{
		message.File("a.txt"),
		message.Dir("dir"),
	}
	decoded, err := DecodeRequests(EncodeRequests(original))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip mismatch: got %+v, expected %+v", decoded, original)
	}
}

func TestMutationRoundTrip(t *testing.T) {
	tests := []message.MutationMessage{
		message.FileCreated("a.txt"),
		message.FileDeleted("a.txt"),
		message.FileEdited("a.txt", []byte("content")),
		message.EmptyDirectoryCreated("dir"),
		message.DirectoryCreated("dir", []byte("archive-bytes")),
		message.DirectoryDeleted("dir"),
		message.Rename("old.txt", "new.txt"),
		message.DirectoryContentsEdited("dir"),
	}
	for _, original := range tests {
		decoded, err := DecodeMutation(EncodeMutation(original))
		if err != nil {
			t.Fatalf("decode failed for kind %v: %v", original.Kind, err)
		}
		if !reflect.DeepEqual(decoded, original) {
			t.Errorf("round trip mismatch for kind %v: got %+v, expected %+v", original.Kind, decoded, original)
		}
	}
}

func TestDecodeMutationUnknownTag(t *testing.T) {
	e := NewEncoder()
	e.writeU32(99)
	if _, err := DecodeMutation(e.Bytes()); err == nil {
		t.Error("expected an error for an unrecognized mutation tag")
	}
}

func TestDecodeManifestTruncated(t *testing.T) {
	if _, err := DecodeManifest([]byte{0, 0}); err == nil {
		t.Error("expected an error decoding a truncated manifest")
	}
}
