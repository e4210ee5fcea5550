// Package sender implements the Sync Engine's sender side (§4.4): it
// drives the handshake, fulfills the receiver's transfer requests, and —
// when running in watch mode — pumps Change Classifier output onto the
// wire until the user interrupts or the peer closes.
package sender

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/driftsync/driftsync/pkg/driftsync"
	"github.com/driftsync/driftsync/pkg/logging"
	"github.com/driftsync/driftsync/pkg/must"
	"github.com/driftsync/driftsync/pkg/synchronization"
	"github.com/driftsync/driftsync/pkg/synchronization/classify"
	"github.com/driftsync/driftsync/pkg/synchronization/core"
	"github.com/driftsync/driftsync/pkg/synchronization/message"
	"github.com/driftsync/driftsync/pkg/synchronization/wire"
	"github.com/driftsync/driftsync/pkg/transport"
	"github.com/driftsync/driftsync/pkg/watch"
)

// maxConcurrentFulfillments bounds how many requests are read/archived
// from disk at once during the initial transfer (§5: "bounded parallelism
// for CPU/IO-heavy leaf operations").
const maxConcurrentFulfillments = 16

// Sender drives one sender-side session.
type Sender struct {
	root   string
	watch  bool
	conn   *transport.Conn
	logger *logging.Logger
}

// New constructs a Sender that synchronizes root onto the peer reachable
// through conn. If watchMode is true, the session continues past the
// initial transfer into the Watch phase (§3).
func New(root string, conn *transport.Conn, watchMode bool, logger *logging.Logger) *Sender {
	return &Sender{root: root, watch: watchMode, conn: conn, logger: logger}
}

// Run drives the session to completion. It returns synchronization.
// ErrCleanShutdown (wrapped, where applicable) on an orderly finish and
// any other error on a fatal failure (§7).
func (s *Sender) Run(ctx context.Context) error {
	if err := s.exchangeVersion(ctx); err != nil {
		return err
	}

	manifest, err := core.BuildManifest(ctx, s.root)
	if err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to build local manifest: %v", err))
	}
	s.logger.Infof("built local manifest with %d entries", manifest.Len())

	if err := s.conn.Send(ctx, wire.EncodeManifest(manifest)); err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to send manifest: %v", err))
	}

	requests, err := s.receiveRequests(ctx)
	if err != nil {
		return err
	}
	s.logger.Infof("received %d transfer requests", len(requests))

	if err := s.fulfill(ctx, requests); err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to fulfill requests: %v", err))
	}

	if !s.watch {
		must.Close(s.conn, s.logger)
		return synchronization.ErrCleanShutdown
	}

	return s.runWatch(ctx)
}

// exchangeVersion performs the version exchange that opens the Handshake
// phase (§5.1): the sender announces its protocol version and then reads
// the receiver's, rejecting a major-version mismatch as a
// ProtocolViolation before either side commits to a manifest exchange.
func (s *Sender) exchangeVersion(ctx context.Context) error {
	var buf bytes.Buffer
	if err := driftsync.SendVersion(&buf); err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to encode version: %v", err))
	}
	if err := s.conn.Send(ctx, buf.Bytes()); err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to send version: %v", err))
	}

	kind, payload, err := s.conn.Receive(ctx)
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
	return nil
}

// receiveRequests reads the single request-list frame that completes the
// handshake (§4.4 step 3).
func (s *Sender) receiveRequests(ctx context.Context) ([]message.RequestMessage, error) {
	kind, payload, err := s.conn.Receive(ctx)
	if err != nil {
		return nil, synchronization.NewFatalError(fmt.Sprintf("unable to read request frame: %v", err))
	}
	if kind != transport.FrameBinary {
		return nil, synchronization.NewProtocolViolation("expected a binary frame carrying the request list")
	}
	requests, err := wire.DecodeRequests(payload)
	if err != nil {
		return nil, synchronization.NewProtocolViolation(fmt.Sprintf("unable to decode request list: %v", err))
	}
	return requests, nil
}

// fulfill reads or archives each requested path concurrently and sends
// the resulting mutation messages as they complete (§4.4 "Fulfillment").
// A single path's failure is logged and dropped rather than aborting the
// whole session.
func (s *Sender) fulfill(ctx context.Context, requests []message.RequestMessage) error {
	if len(requests) == 0 {
		return nil
	}

	results := make(chan message.MutationMessage, len(requests))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentFulfillments)

	for _, request := range requests {
		request := request
		group.Go(func() error {
			msg, ok := s.fulfillOne(request)
			if ok {
				select {
				case results <- msg:
				case <-groupCtx.Done():
				}
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	for {
		select {
		case msg := <-results:
			if err := s.conn.Send(ctx, wire.EncodeMutation(msg)); err != nil {
				return err
			}
		case err := <-done:
			// Drain any results that completed before Wait returned.
			for {
				select {
				case msg := <-results:
					if sendErr := s.conn.Send(ctx, wire.EncodeMutation(msg)); sendErr != nil {
						return sendErr
					}
					continue
				default:
				}
				break
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Sender) fulfillOne(request message.RequestMessage) (message.MutationMessage, bool) {
	full := filepath.Join(s.root, filepath.FromSlash(request.Path))
	switch request.Kind {
	case message.RequestKindFile:
		content, err := os.ReadFile(full)
		if err != nil {
			s.logger.Warnf("unable to read %q for transfer: %v", request.Path, err)
			return message.MutationMessage{}, false
		}
		return message.FileEdited(request.Path, content), true
	case message.RequestKindDir:
		archive, err := core.ArchiveDirectory(full)
		if err != nil {
			s.logger.Warnf("unable to archive %q for transfer: %v", request.Path, err)
			return message.MutationMessage{}, false
		}
		return message.DirectoryCreated(request.Path, archive), true
	default:
		s.logger.Warnf("unrecognized request kind %v for %q", request.Kind, request.Path)
		return message.MutationMessage{}, false
	}
}

// runWatch implements the Watch phase (§4.4 "Watch mode"): subscribe to
// the external watcher and forward each classified mutation as it's
// produced, until the peer closes or the context is canceled.
func (s *Sender) runWatch(ctx context.Context) error {
	watcher, err := watch.New(s.root, s.logger)
	if err != nil {
		return synchronization.NewFatalError(fmt.Sprintf("unable to start watcher: %v", err))
	}
	defer watcher.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watcher.Run(watchCtx)

	for {
		select {
		case <-ctx.Done():
			must.Close(s.conn, s.logger)
			return synchronization.ErrCleanShutdown
		case batch, ok := <-watcher.Batches:
			if !ok {
				return synchronization.ErrCleanShutdown
			}
			if len(batch) == 0 {
				continue
			}
			for _, msg := range classify.Classify(s.logger, s.root, batch) {
				if err := s.conn.Send(ctx, wire.EncodeMutation(msg)); err != nil {
					return synchronization.NewFatalError(fmt.Sprintf("unable to send mutation: %v", err))
				}
			}
		}
	}
}
