// Package message defines the tagged-union message types exchanged over
// the wire once a session has handshaked (§3, §6).
package message

// RequestKind identifies which variant of RequestMessage a value holds.
type RequestKind uint32

const (
	// RequestKindFile requests the full content of a file.
	RequestKindFile RequestKind = 0
	// RequestKindDir requests an archive of a directory's contents.
	RequestKindDir RequestKind = 1
)

// RequestMessage asks the sender to fulfill a single path, either as a
// whole file or as an archived directory (§3).
type RequestMessage struct {
	Kind RequestKind
	Path string
}

// File constructs a file RequestMessage.
func File(path string) RequestMessage { return RequestMessage{Kind: RequestKindFile, Path: path} }

// Dir constructs a directory RequestMessage.
func Dir(path string) RequestMessage { return RequestMessage{Kind: RequestKindDir, Path: path} }

// MutationKind identifies which variant of MutationMessage a value holds.
// The numeric values match the wire tags in spec §6 exactly; they must
// never be renumbered without a matching protocol version bump.
type MutationKind uint32

const (
	MutationFileCreated             MutationKind = 0
	MutationFileDeleted             MutationKind = 1
	MutationFileEdited              MutationKind = 2
	MutationEmptyDirectoryCreated   MutationKind = 3
	MutationDirectoryCreated        MutationKind = 4
	MutationDirectoryDeleted        MutationKind = 5
	MutationRename                  MutationKind = 6
	MutationDirectoryContentsEdited MutationKind = 7
)

// MutationMessage is a single self-contained, idempotent description of a
// filesystem change (§3, §6). Which fields besides Kind are meaningful
// depends on Kind, as described on each field below; see also the
// per-constructor documentation and the dispatch table in spec §4.5.
type MutationMessage struct {
	Kind MutationKind
	// Path is the subject path for every kind except Rename, for which it
	// holds the old path.
	Path string
	// NewPath holds the destination path for a Rename and is empty
	// otherwise.
	NewPath string
	// Content holds file bytes for FileEdited and archive bytes for
	// DirectoryCreated; it is nil for every other kind.
	Content []byte
}

// FileCreated reports that an empty-at-the-time-of-event file now exists
// at path.
func FileCreated(path string) MutationMessage {
	return MutationMessage{Kind: MutationFileCreated, Path: path}
}

// FileDeleted reports that the file at path no longer exists.
func FileDeleted(path string) MutationMessage {
	return MutationMessage{Kind: MutationFileDeleted, Path: path}
}

// FileEdited carries the full new content of an existing file.
func FileEdited(path string, content []byte) MutationMessage {
	return MutationMessage{Kind: MutationFileEdited, Path: path, Content: content}
}

// EmptyDirectoryCreated reports a newly created directory with no content.
func EmptyDirectoryCreated(path string) MutationMessage {
	return MutationMessage{Kind: MutationEmptyDirectoryCreated, Path: path}
}

// DirectoryCreated carries a tar archive of a newly created, populated
// directory's contents.
func DirectoryCreated(path string, archive []byte) MutationMessage {
	return MutationMessage{Kind: MutationDirectoryCreated, Path: path, Content: archive}
}

// DirectoryDeleted reports that the directory at path no longer exists.
func DirectoryDeleted(path string) MutationMessage {
	return MutationMessage{Kind: MutationDirectoryDeleted, Path: path}
}

// Rename reports that the entry at oldPath now lives at newPath.
func Rename(oldPath, newPath string) MutationMessage {
	return MutationMessage{Kind: MutationRename, Path: oldPath, NewPath: newPath}
}

// DirectoryContentsEdited is an informational message the receiver treats
// as a no-op: the individual child events it summarizes are delivered
// elsewhere in the same batch (§4.3, §4.5).
func DirectoryContentsEdited(path string) MutationMessage {
	return MutationMessage{Kind: MutationDirectoryContentsEdited, Path: path}
}
