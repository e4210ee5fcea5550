package core

import "bytes"

// TreeDiff is the five-way partition of paths describing the mutations
// needed to transform a "local" manifest into a "remote" one (§3, §4.2).
type TreeDiff struct {
	// DeletedDirs holds subtree roots present locally but absent remotely.
	DeletedDirs []string
	// DeletedFiles holds files present locally but absent remotely.
	DeletedFiles []string
	// CreatedDirs holds subtree roots present remotely but absent locally.
	CreatedDirs []string
	// CreatedFiles holds files present remotely but absent locally.
	CreatedFiles []string
	// EditedFiles holds files present in both manifests as files with
	// differing content hashes.
	EditedFiles []string
}

// Empty reports whether the diff describes no changes at all.
func (d *TreeDiff) Empty() bool {
	return len(d.DeletedDirs) == 0 && len(d.DeletedFiles) == 0 &&
		len(d.CreatedDirs) == 0 && len(d.CreatedFiles) == 0 && len(d.EditedFiles) == 0
}

// Diff performs a two-pointer merge walk over local and remote (both of
// which must be valid manifests per §3) and returns the TreeDiff
// describing the mutations required to transform local into remote.
//
// The merge advances according to the table in spec §4.2. The critical
// behavior is subtree collapse: when a directory is present on only one
// side, its entire run of descendants is skipped in one step (via
// hasPathPrefix) rather than visited node-by-node, because those
// descendants are carried in bulk by the directory's archive rather than
// being individually created or deleted (invariants D2/D3).
func Diff(local, remote *Manifest) *TreeDiff {
	diff := &TreeDiff{}

	var localIndex, remoteIndex int
	localNodes, remoteNodes := local.Nodes, remote.Nodes

	for localIndex < len(localNodes) && remoteIndex < len(remoteNodes) {
		localNode := &localNodes[localIndex]
		remoteNode := &remoteNodes[remoteIndex]

		switch {
		case localNode.IsFile() && remoteNode.IsFile():
			switch {
			case pathLess(localNode.Path, remoteNode.Path):
				diff.DeletedFiles = append(diff.DeletedFiles, localNode.Path)
				localIndex++
			case pathLess(remoteNode.Path, localNode.Path):
				diff.CreatedFiles = append(diff.CreatedFiles, remoteNode.Path)
				remoteIndex++
			default:
				if !bytes.Equal(localNode.SHA1[:], remoteNode.SHA1[:]) {
					diff.EditedFiles = append(diff.EditedFiles, localNode.Path)
				}
				localIndex++
				remoteIndex++
			}
		case localNode.IsDirectory() && remoteNode.IsDirectory():
			switch {
			case pathLess(localNode.Path, remoteNode.Path):
				diff.DeletedDirs = append(diff.DeletedDirs, localNode.Path)
				localIndex = skipSubtree(localNodes, localIndex)
			case pathLess(remoteNode.Path, localNode.Path):
				diff.CreatedDirs = append(diff.CreatedDirs, remoteNode.Path)
				remoteIndex = skipSubtree(remoteNodes, remoteIndex)
			default:
				localIndex++
				remoteIndex++
			}
		case localNode.IsFile() && remoteNode.IsDirectory():
			// A remote directory that sorts before the local file is
			// absent locally: create it and skip its subtree.
			if pathLess(remoteNode.Path, localNode.Path) {
				diff.CreatedDirs = append(diff.CreatedDirs, remoteNode.Path)
				remoteIndex = skipSubtree(remoteNodes, remoteIndex)
				break
			}
			// Otherwise the local file is absent remotely (or is replaced by
			// a directory at the same path): treat it as deleted. Any
			// directory creation at this path is picked up on a later
			// iteration once local's pointer has moved past it, so remote
			// must not be advanced here.
			diff.DeletedFiles = append(diff.DeletedFiles, localNode.Path)
			localIndex++
		default: // localNode is a directory, remoteNode is a file
			// A local directory that sorts before the remote file is
			// absent remotely: delete it and skip its subtree.
			if pathLess(localNode.Path, remoteNode.Path) {
				diff.DeletedDirs = append(diff.DeletedDirs, localNode.Path)
				localIndex = skipSubtree(localNodes, localIndex)
				break
			}
			diff.CreatedFiles = append(diff.CreatedFiles, remoteNode.Path)
			remoteIndex++
		}
	}

	for localIndex < len(localNodes) {
		node := &localNodes[localIndex]
		if node.IsDirectory() {
			diff.DeletedDirs = append(diff.DeletedDirs, node.Path)
			localIndex = skipSubtree(localNodes, localIndex)
		} else {
			diff.DeletedFiles = append(diff.DeletedFiles, node.Path)
			localIndex++
		}
	}

	for remoteIndex < len(remoteNodes) {
		node := &remoteNodes[remoteIndex]
		if node.IsDirectory() {
			diff.CreatedDirs = append(diff.CreatedDirs, node.Path)
			remoteIndex = skipSubtree(remoteNodes, remoteIndex)
		} else {
			diff.CreatedFiles = append(diff.CreatedFiles, node.Path)
			remoteIndex++
		}
	}

	return diff
}

// skipSubtree returns the index of the first node at or after index+1 that
// is not a descendant of nodes[index] (assumed to be a directory),
// implementing the contiguous-range skip that subtree collapse requires.
func skipSubtree(nodes []TreeNode, index int) int {
	root := nodes[index].Path
	next := index + 1
	for next < len(nodes) && hasPathPrefix(nodes[next].Path, root) {
		next++
	}
	return next
}
