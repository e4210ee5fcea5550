package core

import "strings"

// pathJoin is a fast alternative to path.Join for manifest paths: manifest
// paths are already clean and forward-slash separated, so the cleaning
// overhead of path.Join is wasted work. The leaf name must be non-empty.
func pathJoin(base, leaf string) string {
	if leaf == "" {
		panic("empty leaf name")
	}
	if base == "" {
		return leaf
	}
	return base + "/" + leaf
}

// pathLess reports whether first sorts before second under the
// component-wise lexicographic order that invariant M1 requires. This is
// not the same as a plain byte-wise string comparison: a byte-wise compare
// of "a-b" and "a/b" would put "a-b" first (since '-' < '/'), but a
// depth-first walk visits "a/b"'s directory "a" before it ever reaches the
// sibling "a-b", so the comparator must split on '/' and compare
// component-by-component to keep invariant M2 (a directory's descendants
// immediately follow it in the sequence) true.
func pathLess(first, second string) bool {
	if first == second {
		return false
	} else if first == "" {
		return true
	} else if second == "" {
		return false
	}

	for {
		firstSlash := strings.IndexByte(first, '/')
		var firstComponent string
		if firstSlash == -1 {
			firstComponent = first
		} else {
			firstComponent = first[:firstSlash]
		}

		secondSlash := strings.IndexByte(second, '/')
		var secondComponent string
		if secondSlash == -1 {
			secondComponent = second
		} else {
			secondComponent = second[:secondSlash]
		}

		if firstComponent < secondComponent {
			return true
		} else if secondComponent < firstComponent {
			return false
		}

		if firstSlash == -1 {
			return true
		} else if secondSlash == -1 {
			return false
		}
		first = first[firstSlash+1:]
		second = second[secondSlash+1:]
	}
}

// hasPathPrefix reports whether path is prefix itself or a descendant of
// prefix (i.e. path == prefix, or path begins with prefix + "/"). The
// differ uses this to skip an entire subtree in one step during subtree
// collapse (§4.2) rather than visiting each descendant individually.
func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
