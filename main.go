package main

import (
	"errors"
	"os"

	"github.com/bsmithyman/galoshes/cli"
	"github.com/bsmithyman/galoshes/dispatch"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		var cmdErr *dispatch.CommandFailedError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
			os.Exit(cmdErr.ExitCode)
		}
		os.Exit(1)
	}
}
