package synchronization_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/driftsync/driftsync/pkg/logging"
	"github.com/driftsync/driftsync/pkg/synchronization"
	"github.com/driftsync/driftsync/pkg/synchronization/receiver"
	"github.com/driftsync/driftsync/pkg/synchronization/sender"
	"github.com/driftsync/driftsync/pkg/transport"
)

// TestColdStartReplicatesTree exercises scenario S1 from the protocol
// design: a populated sender root syncing onto an empty receiver output
// directory end to end over a real (loopback) WebSocket connection.
func TestColdStartReplicatesTree(t *testing.T) {
	from := t.TempDir()
	to := t.TempDir()

	if err := os.WriteFile(filepath.Join(from, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(from, "d"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(from, "d", "b.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := logging.RootLogger

	receiverDone := make(chan error, 1)
	var acceptErr error
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transport.Accept(w, r)
		if err != nil {
			acceptErr = err
			return
		}
		rcv := receiver.New(to, conn, logger.Sublogger("receiver"))
		receiverDone <- rcv.Run(context.Background())
	}))
	defer server.Close()

	addr := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := transport.Dial(ctx, addr)
	if err != nil {
		t.Fatalf("unable to dial test server: %v", err)
	}

	snd := sender.New(from, conn, false, logger.Sublogger("sender"))
	if err := snd.Run(ctx); err != nil && !errors.Is(err, synchronization.ErrCleanShutdown) {
		t.Fatalf("sender run failed: %v", err)
	}

	select {
	case err := <-receiverDone:
		if err != nil && !errors.Is(err, synchronization.ErrCleanShutdown) {
			t.Fatalf("receiver run failed: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for receiver to finish")
	}
	if acceptErr != nil {
		t.Fatalf("unable to accept connection: %v", acceptErr)
	}

	topContent, err := os.ReadFile(filepath.Join(to, "a.txt"))
	if err != nil || string(topContent) != "hi" {
		t.Errorf("a.txt = %q, %v; expected \"hi\", nil", topContent, err)
	}
	nestedContent, err := os.ReadFile(filepath.Join(to, "d", "b.txt"))
	if err != nil || string(nestedContent) != "x" {
		t.Errorf("d/b.txt = %q, %v; expected \"x\", nil", nestedContent, err)
	}
}

// TestIdenticalTreesRequestNothing exercises scenario S2: when both sides
// already match, the receiver requests nothing and the session closes
// cleanly with no files transferred.
func TestIdenticalTreesRequestNothing(t *testing.T) {
	from := t.TempDir()
	to := t.TempDir()

	if err := os.WriteFile(filepath.Join(from, "same.txt"), []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(to, "same.txt"), []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := logging.RootLogger
	receiverDone := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transport.Accept(w, r)
		if err != nil {
			receiverDone <- err
			return
		}
		rcv := receiver.New(to, conn, logger.Sublogger("receiver"))
		receiverDone <- rcv.Run(context.Background())
	}))
	defer server.Close()

	addr := "ws" + strings.TrimPrefix(server.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := transport.Dial(ctx, addr)
	if err != nil {
		t.Fatalf("unable to dial test server: %v", err)
	}

	snd := sender.New(from, conn, false, logger.Sublogger("sender"))
	if err := snd.Run(ctx); err != nil && !errors.Is(err, synchronization.ErrCleanShutdown) {
		t.Fatalf("sender run failed: %v", err)
	}

	select {
	case err := <-receiverDone:
		if err != nil && !errors.Is(err, synchronization.ErrCleanShutdown) {
			t.Fatalf("receiver run failed: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for receiver to finish")
	}

	content, err := os.ReadFile(filepath.Join(to, "same.txt"))
	if err != nil || string(content) != "same" {
		t.Errorf("same.txt = %q, %v; expected unchanged \"same\", nil", content, err)
	}
}
