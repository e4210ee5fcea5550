package session

import "testing"

func TestNewIdentifierIsNonEmptyAndUnique(t *testing.T) {
	a, err := NewIdentifier()
	if err != nil {
		t.Fatalf("NewIdentifier failed: %v", err)
	}
	if a == "" {
		t.Fatal("expected a non-empty identifier")
	}
	b, err := NewIdentifier()
	if err != nil {
		t.Fatalf("NewIdentifier failed: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct identifiers, got %q twice", a)
	}
}
