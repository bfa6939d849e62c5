package segment

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/izot/lon-core/internal/cli/output"
	"github.com/izot/lon-core/pkg/config"
	"github.com/izot/lon-core/pkg/core"
	"github.com/izot/lon-core/pkg/persistence"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every persisted segment's map entry and transaction state",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
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

	table := output.NewTableData("Segment", "DataOffset", "MaxSize", "InTransaction", "HeaderValid")
	for _, seg := range persistence.Segments() {
		info, err := ctx.Persistence.Inspect(seg)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", seg, err)
		}
		table.AddRow(
			seg.String(),
			strconv.FormatInt(info.DataOffset, 10),
			strconv.FormatInt(info.MaxDataSize, 10),
			strconv.FormatBool(info.InTransaction),
			strconv.FormatBool(info.HeaderValid),
		)
	}
	return output.PrintTable(os.Stdout, table)
}
