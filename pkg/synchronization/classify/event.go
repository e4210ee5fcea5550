// Package classify implements the Change Classifier (§4.3): it converts a
// batch of raw filesystem change events, as reported by an external
// watcher, into an ordered sequence of wire-ready mutation messages.
package classify

// Kind identifies whether a RawChangeEvent concerns a file or a
// directory.
type Kind int

const (
	// KindFile indicates the event concerns a regular file.
	KindFile Kind = iota
	// KindDirectory indicates the event concerns a directory.
	KindDirectory
)

// RawChangeEvent is a single record produced by the external watcher
// (§3). Paths are relative to the watched root.
type RawChangeEvent struct {
	// Path is the event's path, relative to the watched root.
	Path string
	// Exists reports whether the entry currently exists on disk.
	Exists bool
	// IsNew reports whether this event represents the entry's creation
	// (as opposed to a modification of something that already existed).
	IsNew bool
	// Kind identifies whether Path names a file or a directory.
	Kind Kind
	// Ctime is the entry's change time, in the watcher's own clock units.
	// Only relative ordering between events matters to the classifier.
	Ctime int64
	// Mtime is the entry's modification time, in the watcher's own clock
	// units.
	Mtime int64
	// Inode is the filesystem inode number backing the entry. Two events
	// sharing an Inode value (one with Exists false, one with Exists
	// true) identify the two halves of a rename (§4.3).
	Inode uint64
}
