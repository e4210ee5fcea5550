package core

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ArchiveDirectory walks root (which must already exist) and returns a
// ustar-format archive of its contents, rooted at "." with no entry for
// the root directory itself, per the archive format in spec §6. It is
// used both for populated-directory request fulfillment (§4.4) and for a
// directory moved into the tree wholesale during watch mode (§4.3).
func ArchiveDirectory(root string) ([]byte, error) {
	var buffer bytes.Buffer
	writer := tar.NewWriter(&buffer)

	entries, err := collectArchiveEntries(root)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if err := writeArchiveEntry(writer, root, entry); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("unable to finalize archive: %w", err)
	}

	return buffer.Bytes(), nil
}

// ExtractDirectory extracts a ustar archive (as produced by
// ArchiveDirectory) into target, which must already exist as a directory
// (the receiver always creates the target directory before extracting
// into it, per §4.5).
func ExtractDirectory(target string, archive []byte) error {
	reader := tar.NewReader(bytes.NewReader(archive))

	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("unable to read archive entry: %w", err)
		}

		destination := filepath.Join(target, filepath.FromSlash(header.Name))

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destination, 0o755); err != nil {
				return fmt.Errorf("unable to create directory %q: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
				return fmt.Errorf("unable to create parent of %q: %w", header.Name, err)
			}
			file, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("unable to create file %q: %w", header.Name, err)
			}
			if _, err := io.Copy(file, reader); err != nil {
				file.Close()
				return fmt.Errorf("unable to write file %q: %w", header.Name, err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("unable to close file %q: %w", header.Name, err)
			}
		default:
			// Symlinks and other special ustar entries are not produced by
			// ArchiveDirectory (the builder never reports them), but if one
			// somehow appears on the wire it's skipped rather than failing
			// the whole extraction.
		}
	}
}

type archiveEntry struct {
	relative string
	full     string
	isDir    bool
}

// collectArchiveEntries walks root and returns entries in lexicographic
// order, so that a directory always precedes its children in the archive
// (mirroring manifest ordering, though tar itself doesn't require it).
func collectArchiveEntries(root string) ([]archiveEntry, error) {
	var entries []archiveEntry
	err := filepath.WalkDir(root, func(full string, d fs.DirEntry, err error) error {
		if full == root {
			return nil
		}
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, full)
		if relErr != nil {
			return nil
		}
		if d.IsDir() || d.Type().IsRegular() {
			entries = append(entries, archiveEntry{
				relative: filepath.ToSlash(rel),
				full:     full,
				isDir:    d.IsDir(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk directory for archiving: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return pathLess(entries[i].relative, entries[j].relative) })
	return entries, nil
}

func writeArchiveEntry(writer *tar.Writer, root string, entry archiveEntry) error {
	if entry.isDir {
		header := &tar.Header{
			Name:     entry.relative + "/",
			Typeflag: tar.TypeDir,
			Mode:     0o755,
		}
		return writer.WriteHeader(header)
	}

	info, err := os.Stat(entry.full)
	if err != nil {
		// The file vanished between walk and archive; skip it rather than
		// aborting the whole request (consistent with the fulfillment
		// Transient error class in §7).
		return nil
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("unable to build archive header for %q: %w", entry.relative, err)
	}
	header.Name = entry.relative

	if err := writer.WriteHeader(header); err != nil {
		return fmt.Errorf("unable to write archive header for %q: %w", entry.relative, err)
	}

	file, err := os.Open(entry.full)
	if err != nil {
		return nil
	}
	defer file.Close()

	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("unable to write archive content for %q: %w", entry.relative, err)
	}
	return nil
}
