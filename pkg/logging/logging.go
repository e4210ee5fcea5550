package logging

import (
	"log"
	"os"
)

func init() {
	// Set the global logger to use standard output and drop the default
	// date/time prefix — callers that want timestamps get them from their
	// own log lines.
	log.SetFlags(0)
	log.SetOutput(os.Stdout)
}
