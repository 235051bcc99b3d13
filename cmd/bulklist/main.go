// Command bulklist applies large documents of list operations as
// size-limited, concurrently dispatched batches.
package main

import (
	"errors"
	"os"

	"github.com/bulklist/bulklist/internal/cli"
	"github.com/bulklist/bulklist/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps its error to a process exit code.
func run() int {
	rootCmd := cli.NewRootCmd(version.GetVersion())
	if err := rootCmd.Execute(); err != nil {
		return extractExitCode(err)
	}
	return 0
}

// extractExitCode returns the exit code carried by a cli.ExitError, 1 for
// any other error, and 0 for nil.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}
	return 1
}
