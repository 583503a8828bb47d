package main

import (
	"fmt"
	"os"

	"github.com/zeu5/rl-abstraction/benchmarks"
)

// main entry point to all the experiments
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
