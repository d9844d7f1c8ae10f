package main

import (
	"os"

	"github.com/marmos91/bytestream/cmd/bsctl/commands"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/bytestream/pkg/metrics/prometheus"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
