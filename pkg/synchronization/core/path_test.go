package core

import "testing"

func TestPathJoin(t *testing.T) {
	tests := []struct {
		base     string
		leaf     string
		expected string
	}{
		{"", "a", "a"},
		{"a", "b", "a/b"},
		{"a/b", "c", "a/b/c"},
	}
	for _, test := range tests {
		if result := pathJoin(test.base, test.leaf); result != test.expected {
			t.Errorf("pathJoin(%q, %q) = %q, expected %q", test.base, test.leaf, result, test.expected)
		}
	}
}

func TestPathJoinPanicsOnEmptyLeaf(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("pathJoin did not panic with an empty leaf name")
		}
	}()
	pathJoin("a", "")
}

func TestPathLess(t *testing.T) {
	tests := []struct {
		first    string
		second   string
		expected bool
	}{
		{"", "a", true},
		{"a", "", false},
		{"a", "a", false},
		{"a", "b", true},
		{"b", "a", false},
		// A directory's descendants must sort immediately after it, even
		// when a sibling's name would otherwise interleave under a plain
		// byte-wise comparison.
		{"a/b", "a-b", true},
		{"a-b", "a/b", false},
		{"a", "a/b", true},
		{"a/b", "a", false},
	}
	for _, test := range tests {
		if result := pathLess(test.first, test.second); result != test.expected {
			t.Errorf("pathLess(%q, %q) = %v, expected %v", test.first, test.second, result, test.expected)
		}
	}
}

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		path     string
		prefix   string
		expected bool
	}{
		{"a", "a", true},
		{"a/b", "a", true},
		{"a/b/c", "a", true},
		{"ab", "a", false},
		{"a", "a/b", false},
	}
	for _, test := range tests {
		if result := hasPathPrefix(test.path, test.prefix); result != test.expected {
			t.Errorf("hasPathPrefix(%q, %q) = %v, expected %v", test.path, test.prefix, result, test.expected)
		}
	}
}
