// watchrun watches a file tree and re-runs a command sequence on change.
package main

import (
	"os"

	"github.com/hupe1980/watchrun/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
