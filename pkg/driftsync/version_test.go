package driftsync

import (
	"bytes"
	"testing"
)

func TestSendReceiveVersionRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := SendVersion(&buf); err != nil {
		t.Fatalf("SendVersion failed: %v", err)
	}

	major, minor, patch, err := ReceiveVersion(&buf)
	if err != nil {
		t.Fatalf("ReceiveVersion failed: %v", err)
	}
	if major != VersionMajor || minor != VersionMinor || patch != VersionPatch {
		t.Errorf("got %d.%d.%d, expected %d.%d.%d", major, minor, patch, VersionMajor, VersionMinor, VersionPatch)
	}
}

func TestReceiveAndCompareVersionMatches(t *testing.T) {
	var buf bytes.Buffer
	if err := SendVersion(&buf); err != nil {
		t.Fatalf("SendVersion failed: %v", err)
	}
	compatible, err := ReceiveAndCompareVersion(&buf)
	if err != nil {
		t.Fatalf("ReceiveAndCompareVersion failed: %v", err)
	}
	if !compatible {
		t.Error("expected the current version to be compatible with itself")
	}
}

func TestReceiveAndCompareVersionRejectsMajorMismatch(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0})
	compatible, err := ReceiveAndCompareVersion(&buf)
	if err != nil {
		t.Fatalf("ReceiveAndCompareVersion failed: %v", err)
	}
	if compatible {
		t.Error("expected a major version mismatch to be reported incompatible")
	}
}

func TestReceiveVersionTruncated(t *testing.T) {
	if _, _, _, err := ReceiveVersion(bytes.NewReader([]byte{0, 0})); err == nil {
		t.Error("expected an error decoding a truncated version")
	}
}
