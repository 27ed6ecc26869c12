// Command hlsgen lowers model manifests to HLS type definitions.
package main

import (
	"os"

	"github.com/roach88/hlsgen/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
