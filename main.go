package main

import (
	"os"

	"github.com/reglens/reglens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
