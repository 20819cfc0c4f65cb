// Package main is the entry point for the apidrift CLI.
package main

import (
	"fmt"
	"os"

	"apidrift/internal/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
