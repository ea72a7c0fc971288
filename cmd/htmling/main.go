// Command htmling compiles and renders htmling templates.
package main

import (
	"fmt"
	"os"
)

func main() {
	var root = newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}
