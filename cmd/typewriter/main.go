// Command typewriter serves per-player trigger and dialogue interactions
// and provides tooling to validate content and replay scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/ahdg6/TypeWriter/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
