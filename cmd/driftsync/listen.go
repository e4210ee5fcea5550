package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/cmd"
	"github.com/driftsync/driftsync/pkg/logging"
	"github.com/driftsync/driftsync/pkg/synchronization"
	"github.com/driftsync/driftsync/pkg/synchronization/receiver"
	"github.com/driftsync/driftsync/pkg/transport"
)

var listenCommand = &cobra.Command{
	Use:   "listen",
	Short: "Listen for a single incoming driftsync session",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(listenMain),
}

var listenConfiguration struct {
	// port is the loopback TCP port to bind.
	port uint16
	// outputDirectory is the directory the incoming session will
	// reconstruct its tree into.
	outputDirectory string
}

func init() {
	flags := listenCommand.Flags()
	flags.Uint16Var(&listenConfiguration.port, "port", 9182, "loopback port to listen on")
	flags.StringVar(&listenConfiguration.outputDirectory, "output-dir", "", "directory to reconstruct the synchronized tree into (required)")
}

// listenMain accepts exactly one incoming connection, services it with a
// Receiver, and exits. Per the addressing model (§6), the listener binds
// loopback only; exposing it beyond localhost is left to an external
// tunnel or port-forward.
func listenMain(_ *cobra.Command, _ []string) error {
	applyLogLevel()

	if listenConfiguration.outputDirectory == "" {
		return errors.New("--output-dir is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), cmd.TerminationSignals...)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", listenConfiguration.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}

	logger := logging.RootLogger.Sublogger("receiver")

	sessions := make(chan error, 1)
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := transport.Accept(w, r)
			if err != nil {
				sessions <- fmt.Errorf("unable to accept connection: %w", err)
				return
			}
			rcv := receiver.New(listenConfiguration.outputDirectory, conn, logger)
			sessions <- rcv.Run(r.Context())
		}),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErrors := make(chan error, 1)
	go func() { serveErrors <- server.Serve(listener) }()

	logger.Infof("listening on %s", addr)

	select {
	case <-ctx.Done():
		server.Close()
		return nil
	case err := <-serveErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listener failed: %w", err)
	case err := <-sessions:
		server.Close()
		if err != nil && !errors.Is(err, synchronization.ErrCleanShutdown) {
			return err
		}
		return nil
	}
}
