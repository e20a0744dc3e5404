package main

import (
	"fmt"
	"os"

	"github.com/tinyvm/tinyvm/cmd"
)

func main() {
	os.Exit(runMain())
}

// runMain is split out from main so the CLI can be driven in-process by
// testscript.RunMain without exec-ing a built binary.
func runMain() int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
