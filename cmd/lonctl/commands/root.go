// Package commands implements lonctl's cobra command tree.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/izot/lon-core/cmd/lonctl/commands/config"
	segmentcmd "github.com/izot/lon-core/cmd/lonctl/commands/segment"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lonctl",
	Short: "lon-core development and diagnostic harness",
	Long: `lonctl boots a lon-core node's Network Layer, Data Link Layer, and
Persistent Segment Manager behind a cooperative scheduler, against the
reference flash-file HAL and loopback link HAL, and inspects their live
state.

Use "lonctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/lonctl/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(segmentcmd.Cmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("lonctl %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
