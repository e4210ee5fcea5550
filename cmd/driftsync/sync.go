package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/cmd"
	"github.com/driftsync/driftsync/pkg/logging"
	"github.com/driftsync/driftsync/pkg/synchronization"
	"github.com/driftsync/driftsync/pkg/synchronization/sender"
	"github.com/driftsync/driftsync/pkg/synchronization/session"
	"github.com/driftsync/driftsync/pkg/transport"
)

var syncCommand = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize a local directory onto a remote driftsync listener",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(syncMain),
}

var syncConfiguration struct {
	// from is the local directory to synchronize from.
	from string
	// to is the address of the receiver to synchronize to.
	to string
	// watch indicates whether the session should continue past the initial
	// transfer into watch mode, streaming incremental changes (§3).
	watch bool
}

func init() {
	flags := syncCommand.Flags()
	flags.StringVar(&syncConfiguration.from, "from", "", "local directory to synchronize (required)")
	flags.StringVar(&syncConfiguration.to, "to", "", "address of the driftsync listener to synchronize to (required)")
	flags.BoolVar(&syncConfiguration.watch, "watch", false, "continue watching for and streaming changes after the initial transfer")
}

func syncMain(_ *cobra.Command, _ []string) error {
	applyLogLevel()

	if syncConfiguration.from == "" || syncConfiguration.to == "" {
		return errors.New("both --from and --to are required")
	}

	identifier, err := session.NewIdentifier()
	if err != nil {
		return fmt.Errorf("unable to generate session identifier: %w", err)
	}
	logger := logging.RootLogger.Sublogger(identifier)

	ctx, stop := signal.NotifyContext(context.Background(), cmd.TerminationSignals...)
	defer stop()

	logger.Infof("connecting to %s", syncConfiguration.to)
	conn, err := transport.Dial(ctx, syncConfiguration.to)
	if err != nil {
		return fmt.Errorf("unable to connect to %s: %w", syncConfiguration.to, err)
	}

	snd := sender.New(syncConfiguration.from, conn, syncConfiguration.watch, logger)
	err = snd.Run(ctx)
	if errors.Is(err, synchronization.ErrCleanShutdown) {
		return nil
	}
	return err
}
