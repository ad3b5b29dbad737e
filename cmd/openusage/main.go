package main

import (
	"fmt"
	"os"
)

// Set by the release build
var (
	version = "0.0.0"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
