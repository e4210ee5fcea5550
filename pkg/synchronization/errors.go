// Package synchronization hosts the sender- and receiver-side protocol
// drivers (pkg/synchronization/sender, pkg/synchronization/receiver) along
// with the shared error taxonomy they report against (§7).
package synchronization

import "errors"

// FatalError is returned for conditions that abort a session outright and
// should result in the process exiting 1: the root path isn't a directory,
// the handshake itself fails, or the first frame isn't a valid Manifest.
// A port bind failure is reported by the listen command as a plain error,
// not as a FatalError.
type FatalError struct {
	reason string
}

func (e *FatalError) Error() string { return e.reason }

// NewFatalError wraps reason as a FatalError.
func NewFatalError(reason string) error { return &FatalError{reason: reason} }

// ProtocolViolation is returned when a peer sends something other than
// what the protocol step expects during the handshake: a non-binary frame
// where binary was required, or a frame that fails to decode.
type ProtocolViolation struct {
	reason string
}

func (e *ProtocolViolation) Error() string { return e.reason }

// NewProtocolViolation wraps reason as a ProtocolViolation.
func NewProtocolViolation(reason string) error { return &ProtocolViolation{reason: reason} }

// ErrCleanShutdown is returned by the protocol driver loops to signal that
// the session ended the expected way: a peer close frame, end of stream,
// or a user interrupt. Callers exit 0 for this error rather than reporting
// it.
var ErrCleanShutdown = errors.New("session closed")

// IsFatal reports whether err should cause the process to exit 1 with its
// message printed to stderr. Every error that escapes a protocol driver is
// fatal except ErrCleanShutdown: Transient failures (§7) are handled
// internally via log-and-continue and never propagate this far.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrCleanShutdown)
}
