package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/cruciblehq/cruxmatrix/internal"
	"github.com/cruciblehq/cruxmatrix/internal/cli"
)

// The entry point for cruxmatrix.
//
// Initializes logging, displays startup information, and executes the root
// command. Exits with the code carried by a [cli.ExitError], or 1 for any
// other error.
func main() {
	slog.SetDefault(cli.NewLogger(os.Stderr))

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("cruxmatrix is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	err := cli.Execute()
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			slog.Error(exitErr.Error())
		}
		os.Exit(exitErr.Code)
	}

	slog.Error(err.Error())
	os.Exit(cli.ExitFailed)
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
