// The main package for the stockwatch executable.
package main

import (
	"github.com/JakeFAU/stockwatch/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
