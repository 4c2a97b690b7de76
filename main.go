package main

import (
	"os"

	"github.com/grovetools/compass/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
