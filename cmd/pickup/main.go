// Command pickup runs the pickup client core and its journal tooling.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pickup/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
