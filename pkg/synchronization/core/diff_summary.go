package core

import (
	"strings"

	"github.com/driftsync/driftsync/pkg/utility"
)

// Summary renders a human-readable description of the diff, used by the
// receiver to log the result of initial reconciliation (§4.5). This
// mirrors the descriptive rendering the prototype this system was
// distilled from produced for the same purpose.
func (d *TreeDiff) Summary() string {
	var b strings.Builder
	writeSection(&b, "Deleted directories", d.DeletedDirs)
	writeSection(&b, "Deleted files", d.DeletedFiles)
	writeSection(&b, "Requested directories", d.CreatedDirs)
	requested := append(utility.CopyStringSlice(d.CreatedFiles), d.EditedFiles...)
	writeSection(&b, "Requested files", requested)
	return b.String()
}

func writeSection(b *strings.Builder, title string, paths []string) {
	b.WriteString(title)
	b.WriteByte(':')
	if len(paths) == 0 {
		b.WriteString(" (none)")
	}
	for _, path := range paths {
		b.WriteString("\n  - ")
		b.WriteString(path)
	}
	b.WriteByte('\n')
}
