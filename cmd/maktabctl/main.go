// Command maktabctl runs administrative tasks against the maktab database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(&commandLine{out: os.Stdout}, connect).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
