// Package main is the leapstream command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapstream/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
