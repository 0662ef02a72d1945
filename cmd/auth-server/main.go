package main

import (
	"os"
)

// set at build time
var version = "dev"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
