// Command lvsim runs lvbind scenes on the reference engine.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/lvbind/cmd/lvsim/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
