// Package must wraps operations whose errors are only ever worth logging,
// not propagating. It's used in cleanup and best-effort paths (closing a
// connection after a protocol violation, removing a partially-written
// temporary file, signaling a child process during shutdown) where the
// caller has nothing more useful to do with the error than tell the user
// about it.
package must

import (
	"io"
	"os"

	"github.com/driftsync/driftsync/pkg/logging"
	"github.com/spf13/cobra"
)

// Close closes c, logging any error at Warn.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %s", err.Error())
	}
}

// OSRemove removes the named file or empty directory, logging any error
// at Warn.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil {
		logger.Warnf("unable to remove %q: %s", name, err.Error())
	}
}

// OSRemoveAll removes the named path and any children, logging any error
// at Warn.
func OSRemoveAll(path string, logger *logging.Logger) {
	if err := os.RemoveAll(path); err != nil {
		logger.Warnf("unable to remove %q: %s", path, err.Error())
	}
}

// IOCopy copies from src to dst, logging any error at Warn.
func IOCopy(dst io.Writer, src io.Reader, logger *logging.Logger) {
	if _, err := io.Copy(dst, src); err != nil {
		logger.Warnf("unable to copy: %s", err.Error())
	}
}

// Signal sends sig to s, logging any error at Warn.
func Signal(s interface{ Signal(os.Signal) error }, sig os.Signal, logger *logging.Logger) {
	if err := s.Signal(sig); err != nil {
		logger.Warnf("unable to signal: %s", err.Error())
	}
}

// CommandHelp prints c's help text, logging any error at Warn.
func CommandHelp(c *cobra.Command, logger *logging.Logger) {
	if err := c.Help(); err != nil {
		logger.Warnf("unable to print help: %s", err.Error())
	}
}
