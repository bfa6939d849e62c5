// Command lonctl is the host-side development and diagnostic harness for
// a lon-core node: it boots the Network Layer, Data Link Layer, and
// Persistent Segment Manager behind a cooperative scheduler, drives
// them against the reference flash-file HAL and loopback link HAL, and
// inspects their live state.
package main

import (
	"fmt"
	"os"

	"github.com/izot/lon-core/cmd/lonctl/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
