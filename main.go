// The main package for the autoved executable.
package main

import (
	"os"

	"github.com/SashaDiz/autoved-sub000/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	os.Exit(cmd.Execute())
}
