package main

import (
	"os"

	"github.com/enginecrane/enginecrane/internal/cli"
)

// Version can be set at build time via ldflags.
var Version = "0.0.1"

func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = Version
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
