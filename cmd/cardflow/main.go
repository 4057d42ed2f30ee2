package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/cardflow/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)

	// Errors cobra raises itself (unknown flag, wrong argument count) are
	// usage errors.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
