// Command hubctl is a command-line client for a smart-home hub.
package main

import (
	"os"

	"github.com/hubctl/hubctl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
