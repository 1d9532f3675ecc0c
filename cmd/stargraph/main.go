package main

import (
	"os"

	"github.com/stargraph/stargraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
