// Command livereload attaches the live-reload client to a page served by a
// development server.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/livereload/cmd/livereload/commands"
)

const version = "0.1.0-dev"

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
