// replaycheck reconciles the event logs an engine and a broker wrote while
// replaying the same stream.
package main

import (
	"os"

	"github.com/ccollicutt/replaycheck/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
