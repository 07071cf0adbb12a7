package main

import (
	"os"

	"github.com/conneroisu/lectern/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
