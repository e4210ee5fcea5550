package classify

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/driftsync/driftsync/pkg/logging"
	"github.com/driftsync/driftsync/pkg/synchronization/core"
	"github.com/driftsync/driftsync/pkg/synchronization/message"
)

// Classify converts a batch of RawChangeEvents, all concerning paths
// under root, into an ordered sequence of MutationMessages (§4.3).
//
// Stage 1 sorts the batch by (inode descending, ctime descending, mtime
// descending). The key property this gives is that the two events making
// up a rename — one deletion, one creation, sharing an inode — land
// adjacently with the surviving (currently-existing) side first, because
// a rename's destination event necessarily carries a higher ctime than
// its source event's. Stage 2 then consumes the sorted batch back to
// front, as if popping off the end of the descending-sorted sequence: the
// deletion half of a rename pair (lower ctime) is popped before its
// surviving half, so it can peek one position ahead and consolidate the
// pair into a single Rename. One event is consumed per iteration (two for
// a detected rename), each emitting the corresponding message.
//
// Per-event read or archive failures are logged at Warn via logger and
// the event is dropped rather than aborting the whole batch (the
// Transient error class of §7); logger may be nil, in which case nothing
// is logged.
func Classify(logger *logging.Logger, root string, events []RawChangeEvent) []message.MutationMessage {
	sorted := make([]RawChangeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Inode != b.Inode {
			return a.Inode > b.Inode
		}
		if a.Ctime != b.Ctime {
			return a.Ctime > b.Ctime
		}
		return a.Mtime > b.Mtime
	})

	// sorted is ordered (inode desc, ctime desc, mtime desc), so consuming
	// it is a pop-from-the-end operation: the lowest-ctime event in each
	// inode pair is popped first, with the surviving (higher-ctime,
	// Exists=true) half still ahead of it in the stack to be peeked.
	var messages []message.MutationMessage
	for i := len(sorted) - 1; i >= 0; i-- {
		event := sorted[i]

		if event.Exists {
			messages = appendLiveEvent(messages, logger, root, event)
			continue
		}

		if i-1 >= 0 && sorted[i-1].Inode == event.Inode && sorted[i-1].Exists {
			destination := sorted[i-1]
			i--
			messages = append(messages, message.Rename(event.Path, destination.Path))
			continue
		}

		if event.Kind == KindDirectory {
			messages = append(messages, message.DirectoryDeleted(event.Path))
		} else {
			messages = append(messages, message.FileDeleted(event.Path))
		}
	}
	return messages
}

func appendLiveEvent(messages []message.MutationMessage, logger *logging.Logger, root string, event RawChangeEvent) []message.MutationMessage {
	full := filepath.Join(root, filepath.FromSlash(event.Path))

	switch {
	case event.Kind == KindDirectory && !event.IsNew:
		return append(messages, message.DirectoryContentsEdited(event.Path))
	case event.Kind == KindFile && event.IsNew:
		return append(messages, message.FileCreated(event.Path))
	case event.Kind == KindFile && !event.IsNew:
		content, err := os.ReadFile(full)
		if err != nil {
			logger.Warnf("unable to read changed file %q: %v", event.Path, err)
			return messages
		}
		return append(messages, message.FileEdited(event.Path, content))
	case event.Kind == KindDirectory && event.IsNew:
		if core.DirEmpty(full) {
			return append(messages, message.EmptyDirectoryCreated(event.Path))
		}
		archive, err := core.ArchiveDirectory(full)
		if err != nil {
			logger.Warnf("unable to archive new directory %q: %v", event.Path, err)
			return messages
		}
		return append(messages, message.DirectoryCreated(event.Path, archive))
	}
	return messages
}
