// The main package for the comicdl executable.
package main

import (
	"github.com/comicdl/comicdl/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
