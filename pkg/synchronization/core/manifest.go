package core

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// ErrPathNotDirectory is returned by BuildManifest when the root exists but
// is not a directory.
var ErrPathNotDirectory = errors.New("path exists and is not a directory")

// maxConcurrentHashes bounds the number of files being hashed at once
// during manifest construction.
const maxConcurrentHashes = 16

// Manifest is an ordered, content-hashed description of a directory tree,
// as produced by BuildManifest. See spec §3 for the invariants (M1-M3)
// that a valid Manifest must satisfy.
type Manifest struct {
	// Nodes is the depth-first, lexicographically sorted sequence of
	// TreeNodes describing the tree. The root itself is never included.
	Nodes []TreeNode
}

// Len reports the number of nodes in the manifest.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Nodes)
}

// Validate checks invariants M1-M3 against the manifest. It does not
// re-derive hashes; it only checks structural ordering.
func (m *Manifest) Validate() error {
	for i, node := range m.Nodes {
		if node.Path == "" {
			return errors.New("manifest contains root entry")
		}
		if i > 0 {
			previous := m.Nodes[i-1]
			if !pathLess(previous.Path, node.Path) {
				return fmt.Errorf("manifest out of order at index %d (%q then %q)", i, previous.Path, node.Path)
			}
			if previous.IsDirectory() {
				// M2 (a directory's descendants follow it contiguously) is
				// implied by the component-wise ordering checked above, so
				// nothing further is checked here. A node whose parent
				// directory is absent from the manifest is not rejected.
				_ = previous
			}
		}
	}
	return nil
}

// BuildManifest performs a depth-first walk of root, ordering children
// lexicographically by path, and returns a Manifest covering its
// transitive contents (§4.1).
//
// If root does not exist, it is created as an empty directory (this is
// what allows a freshly started receiver to build a manifest over an
// output directory it hasn't populated yet). If root exists but is not a
// directory, ErrPathNotDirectory is returned. File content is hashed
// concurrently, bounded by maxConcurrentHashes; the walk itself is
// strictly serial so that node ordering is deterministic.
func BuildManifest(ctx context.Context, root string) (*Manifest, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(root, 0o755); err != nil {
				return nil, fmt.Errorf("unable to create root directory: %w", err)
			}
		} else {
			return nil, fmt.Errorf("unable to stat root: %w", err)
		}
	} else if !info.IsDir() {
		return nil, ErrPathNotDirectory
	}

	var nodes []TreeNode
	type pendingHash struct {
		index int
		full  string
	}
	var pending []pendingHash

	walkErr := filepath.WalkDir(root, func(full string, entry fs.DirEntry, err error) error {
		if full == root {
			return nil
		}
		if err != nil {
			// Unreadable entries (permission errors, races with deletion)
			// are skipped silently rather than aborting the walk.
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, full)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		switch {
		case entry.IsDir():
			nodes = append(nodes, TreeNode{Path: rel, Kind: TreeNodeKindDirectory})
		case entry.Type().IsRegular():
			index := len(nodes)
			nodes = append(nodes, TreeNode{Path: rel, Kind: TreeNodeKindFile})
			pending = append(pending, pendingHash{index: index, full: full})
		default:
			// Symlinks, sockets, devices, etc. are not synchronizable and
			// are silently skipped (spec §9 open question 3).
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("unable to walk root: %w", walkErr)
	}

	if len(pending) > 0 {
		dropped := make([]bool, len(pending))
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(maxConcurrentHashes)
		for i, job := range pending {
			i, job := i, job
			group.Go(func() error {
				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				default:
				}
				sum, err := hashFile(job.full)
				if err != nil {
					dropped[i] = true
					return nil
				}
				nodes[job.index].SHA1 = sum
				return nil
			})
		}
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("unable to hash files: %w", err)
		}

		for i, job := range pending {
			if dropped[i] {
				nodes[job.index] = TreeNode{}
				nodes[job.index].Path = ""
			}
		}
		if anyDropped(dropped) {
			nodes = compactDropped(nodes)
		}
	}

	return &Manifest{Nodes: nodes}, nil
}

// hashFile computes the SHA-1 digest of a file's full contents.
func hashFile(path string) (sum [SHA1Size]byte, err error) {
	file, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer file.Close()

	hasher := sha1.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return sum, err
	}
	copy(sum[:], hasher.Sum(nil))
	return sum, nil
}

func anyDropped(dropped []bool) bool {
	for _, d := range dropped {
		if d {
			return true
		}
	}
	return false
}

// compactDropped removes the zero-value placeholders left by files whose
// content could not be read, preserving the relative order of the
// remaining nodes (and thus invariants M1/M2).
func compactDropped(nodes []TreeNode) []TreeNode {
	result := nodes[:0]
	for _, node := range nodes {
		if node.Path == "" {
			continue
		}
		result = append(result, node)
	}
	return result
}

// DirEmpty reports whether the directory at path has no entries. An
// unreadable directory is treated as empty rather than propagating the
// read error.
func DirEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return true
	}
	return len(entries) == 0
}
