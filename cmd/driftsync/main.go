package main

import (
	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/cmd"
	"github.com/driftsync/driftsync/pkg/driftsync"
	"github.com/driftsync/driftsync/pkg/logging"
	"github.com/driftsync/driftsync/pkg/must"
)

func rootMain(command *cobra.Command, _ []string) {
	if rootConfiguration.version {
		println(driftsync.Version)
		return
	}
	must.CommandHelp(command, logging.RootLogger)
}

var rootCommand = &cobra.Command{
	Use:   "driftsync",
	Short: "driftsync continuously reflects the state of a local directory onto a remote one.",
	Run:   rootMain,
}

var rootConfiguration struct {
	// version indicates that the version should be printed and the process
	// exited.
	version bool
	// logLevel selects the minimum severity that pkg/logging will emit.
	logLevel string
}

func init() {
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&rootConfiguration.logLevel, "log-level", "info", "log level (disabled|error|warn|info|debug)")

	flags = rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.version, "version", "V", false, "show version information")

	cobra.EnableCommandSorting = false
	cobra.MousetrapHelpText = ""

	rootCommand.AddCommand(
		syncCommand,
		listenCommand,
	)
}

// applyLogLevel configures logging.RootLogger from the --log-level flag,
// falling back to info with a warning on an unrecognized name.
func applyLogLevel() {
	level, ok := logging.NameToLevel(rootConfiguration.logLevel)
	if !ok {
		logging.RootLogger.Warnf("unrecognized log level %q, defaulting to info", rootConfiguration.logLevel)
	}
	logging.RootLogger.SetLevel(level)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		cmd.Fatal(err)
	}
}
