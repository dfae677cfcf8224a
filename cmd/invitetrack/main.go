package main

import (
	"fmt"
	"os"

	"github.com/roach88/invitetrack/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "invitetrack: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
