package main

import (
	"os"

	"github.com/timernudge/timernudge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
