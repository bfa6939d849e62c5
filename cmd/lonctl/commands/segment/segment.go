// Package segment implements lonctl's persisted-segment inspection
// subcommands, reading the flash-file HAL's raw transaction/header state
// directly rather than through Restore's acceptance gate — the Linux-host
// stand-in for the JTAG flash-dump tooling a real firmware build uses to
// diagnose torn writes.
package segment

import "github.com/spf13/cobra"

// Cmd is the segment subcommand.
var Cmd = &cobra.Command{
	Use:   "segment",
	Short: "Inspect persisted segment state",
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(dumpCmd)
}
