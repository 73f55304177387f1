package main

import (
	"fmt"
	"os"

	"imagegen/internal/cli"
)

func main() {
	cmd := cli.NewCommand(cli.DefaultDeps())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
