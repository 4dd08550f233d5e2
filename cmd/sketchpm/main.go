package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danieljhkim/sketchpm/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		// Commands that fail with ErrFailed have already reported why.
		if !errors.Is(err, cli.ErrFailed) {
			fmt.Fprintln(os.Stderr, cli.FormatError(err))
		}
		os.Exit(1)
	}
}
