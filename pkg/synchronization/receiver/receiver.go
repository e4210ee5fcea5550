// Package receiver implements the Apply Engine (§4.5): it reconstructs the
// sender's view of a directory tree from an initial diff plus a live
// stream of mutation messages, applying each one idempotently to an
// output directory it owns exclusively for the session's duration.
package receiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/driftsync/driftsync/pkg/driftsync"
	"github.com/driftsync/driftsync/pkg/logging"
	"github.com/driftsync/driftsync/pkg/must"
	"github.com/driftsync/driftsync/pkg/synchronization"
	"github.com/driftsync/driftsync/pkg/synchronization/core"
	"github.com/driftsync/driftsync/pkg/synchronization/message"
	"github.com/driftsync/driftsync/pkg/synchronization/wire"
	"github.com/driftsync/driftsync/pkg/transport"
)

// Receiver drives one receiver-side session.
type Receiver struct {
	output string
	conn   *transport.Conn
	logger *logging.Logger
}

// New constructs a Receiver that reconstructs the sender's tree into
// output.
func New(output string, conn *transport.Conn, logger *logging.Logger) *Receiver {
	return &Receiver{output: output, conn: conn, logger: logger}
}

// Run drives the session to completion, returning
// synchronization.ErrCleanShutdown on an orderly finish.
func (r *Receiver) Run(ctx context.Context) error {
	if err := r.exchangeVersion(ctx); err != nil {
		return err
	}

	local, err := core.BuildManifest(ctx, r.output)
	if err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to build local manifest: %v", err))
	}

	remote, err := r.receiveManifest(ctx)
	if err != nil {
		return err
	}

	diff := core.Diff(local, remote)
	r.logger.Infof("reconciliation result:\n%s", diff.Summary())

	r.preApply(diff)

	requests := buildRequests(diff)
	if err := r.conn.Send(ctx, wire.EncodeRequests(requests)); err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to send request list: %v", err))
	}

	return r.steadyState(ctx)
}

// exchangeVersion performs the receiver's half of the Handshake phase's
// version exchange (§5.1): read the sender's announced version, reject a
// major-version mismatch as a ProtocolViolation, and otherwise echo back
// this build's own version.
func (r *Receiver) exchangeVersion(ctx context.Context) error {
	kind, payload, err := r.conn.Receive(ctx)
	if err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to read peer version: %v", err))
	}
	if kind != transport.FrameBinary {
		return synchronization.NewProtocolViolation("expected a binary frame carrying the peer's version")
	}
	compatible, err := driftsync.ReceiveAndCompareVersion(bytes.NewReader(payload))
	if err != nil {
		return synchronization.NewProtocolViolation(fmt.Sprintf("unable to decode peer version: %v", err))
	}
	if !compatible {
		return synchronization.NewProtocolViolation("peer major protocol version is incompatible")
	}

	var buf bytes.Buffer
	if err := driftsync.SendVersion(&buf); err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to encode version: %v", err))
	}
	if err := r.conn.Send(ctx, buf.Bytes()); err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to send version: %v", err))
	}
	return nil
}

// receiveManifest reads and validates the sender's manifest frame
// (§4.5 "Handshake").
func (r *Receiver) receiveManifest(ctx context.Context) (*core.Manifest, error) {
	kind, payload, err := r.conn.Receive(ctx)
	if err != nil {
		return nil, synchronization.NewFatalError(fmt.Sprintf("unable to read manifest frame: %v", err))
	}
	if kind != transport.FrameBinary {
		return nil, synchronization.NewProtocolViolation("expected a binary frame carrying the sender's manifest")
	}
	manifest, err := wire.DecodeManifest(payload)
	if err != nil {
		return nil, synchronization.NewFatalError(fmt.Sprintf("unable to decode manifest: %v", err))
	}
	if err := manifest.Validate(); err != nil {
		return nil, synchronization.NewFatalError(fmt.Sprintf("invalid manifest: %v", err))
	}
	return manifest, nil
}

// preApply removes everything the diff says no longer belongs, in order
// (directories before files), before any request is sent (§4.5
// "Pre-apply"). A missing target is ignored; any other removal failure is
// logged and non-fatal.
func (r *Receiver) preApply(diff *core.TreeDiff) {
	for _, path := range diff.DeletedDirs {
		must.OSRemoveAll(r.path(path), r.logger)
	}
	for _, path := range diff.DeletedFiles {
		if err := os.Remove(r.path(path)); err != nil && !os.IsNotExist(err) {
			r.logger.Warnf("unable to remove file %q: %v", path, err)
		}
	}
}

// buildRequests converts a diff into the RequestMessage list sent back to
// the sender, ordering directories before files within each side so a
// receiver that processes responses greedily sees parents first.
func buildRequests(diff *core.TreeDiff) []message.RequestMessage {
	requests := make([]message.RequestMessage, 0, len(diff.CreatedDirs)+len(diff.CreatedFiles)+len(diff.EditedFiles))
	for _, path := range diff.CreatedDirs {
		requests = append(requests, message.Dir(path))
	}
	for _, path := range diff.CreatedFiles {
		requests = append(requests, message.File(path))
	}
	for _, path := range diff.EditedFiles {
		requests = append(requests, message.File(path))
	}
	return requests
}

// steadyState reads mutation frames until the peer closes, the stream
// ends, or the context is canceled, dispatching each to its handler
// (§4.5 "Steady state"). Per-message failures are logged and do not
// terminate the loop.
func (r *Receiver) steadyState(ctx context.Context) error {
	var totalBytes uint64
	for {
		kind, payload, err := r.conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return synchronization.ErrCleanShutdown
			}
			r.logger.Warnf("stream ended with read error: %v", err)
			return synchronization.ErrCleanShutdown
		}
		switch kind {
		case transport.FrameClose:
			r.logger.Infof("session closed after receiving %s", humanize.Bytes(totalBytes))
			return synchronization.ErrCleanShutdown
		case transport.FrameOther:
			continue
		}

		totalBytes += uint64(len(payload))
		mutation, err := wire.DecodeMutation(payload)
		if err != nil {
			r.logger.Warnf("unable to decode mutation frame: %v", err)
			continue
		}
		if err := r.apply(mutation); err != nil {
			r.logger.Warnf("unable to apply %v for %q: %v", mutation.Kind, mutation.Path, err)
		}
	}
}

// apply dispatches a single mutation to its handler, per the table in
// §4.5.
func (r *Receiver) apply(m message.MutationMessage) error {
	switch m.Kind {
	case message.MutationFileCreated:
		return touchFile(r.path(m.Path))
	case message.MutationFileDeleted:
		if err := os.Remove(r.path(m.Path)); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	case message.MutationFileEdited:
		return writeFileAtomically(r.path(m.Path), m.Content)
	case message.MutationRename:
		return os.Rename(r.path(m.Path), r.path(m.NewPath))
	case message.MutationEmptyDirectoryCreated:
		return os.MkdirAll(r.path(m.Path), 0o755)
	case message.MutationDirectoryCreated:
		if err := os.MkdirAll(r.path(m.Path), 0o755); err != nil {
			return err
		}
		return core.ExtractDirectory(r.path(m.Path), m.Content)
	case message.MutationDirectoryDeleted:
		if err := os.RemoveAll(r.path(m.Path)); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	case message.MutationDirectoryContentsEdited:
		return nil
	default:
		return fmt.Errorf("unrecognized mutation kind: %v", m.Kind)
	}
}

func (r *Receiver) path(relative string) string {
	return filepath.Join(r.output, filepath.FromSlash(relative))
}

// touchFile creates an empty file at path, truncating it if it already
// exists.
func touchFile(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return file.Close()
}

// writeFileAtomically writes content to path by writing to a temporary
// file in the same directory and renaming it into place, so a reader
// never observes a partially written file.
func writeFileAtomically(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	temp, err := os.CreateTemp(dir, ".driftsync-*")
	if err != nil {
		return err
	}
	tempName := temp.Name()
	if _, err := temp.Write(content); err != nil {
		temp.Close()
		os.Remove(tempName)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return err
	}
	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}
