// Package main provides the fusion CLI: run fused conv/ReLU/pool cases from
// flags or YAML case files and report host capabilities.
package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
