package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/clargs/internal/kernelargs"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if kind := kernelargs.Kind(err); kind != "" {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
