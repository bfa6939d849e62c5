package commands

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/izot/lon-core/internal/cli/output"
	"github.com/izot/lon-core/pkg/config"
	"github.com/izot/lon-core/pkg/core"
)

var statsTicks int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Boot the node, run a bounded number of ticks, and print statistics",
	Long: `Boots a node against the reference flash-file HAL and loopback link
HAL, drives the cooperative scheduler for a fixed number of ticks, and
prints the Network Layer's and Data Link Layer's saturating statistics
counters (spec §7) as a table.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsTicks, "ticks", 1, "number of scheduler ticks to run before reporting")
}

func runStats(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	ctx, err := core.New(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()

	for i := 0; i < statsTicks; i++ {
		ctx.Tick()
	}

	table := output.NewTableData("Layer", "Counter", "Value")
	for kind, value := range ctx.Network.Stats.Snapshot() {
		table.AddRow("network", kind, strconv.Itoa(int(value)))
	}
	for kind, value := range ctx.DataLink.Stats.Snapshot() {
		table.AddRow("datalink", kind, strconv.Itoa(int(value)))
	}
	return output.PrintTable(os.Stdout, table)
}
