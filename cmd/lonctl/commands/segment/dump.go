package segment

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/izot/lon-core/pkg/config"
	"github.com/izot/lon-core/pkg/core"
	"github.com/izot/lon-core/pkg/persistence"
)

var dumpBytes int64

var dumpCmd = &cobra.Command{
	Use:   "dump <segment>",
	Short: "Hex-dump a segment's raw payload region",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().Int64Var(&dumpBytes, "bytes", 256, "maximum number of payload bytes to dump")
}

func runDump(cmd *cobra.Command, args []string) error {
	seg, err := parseSegmentName(args[0])
	if err != nil {
		return err
	}

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

	info, err := ctx.Persistence.Inspect(seg)
	if err != nil {
		return err
	}
	cmd.Printf("segment=%s dataOffset=%d maxSize=%d inTransaction=%v headerValid=%v headerLength=%d\n",
		seg, info.DataOffset, info.MaxDataSize, info.InTransaction, info.HeaderValid, info.HeaderLength)

	payload, err := ctx.Persistence.ReadPayload(seg, dumpBytes)
	if err != nil {
		return err
	}
	cmd.Println(hex.Dump(payload))
	return nil
}

func parseSegmentName(name string) (persistence.SegmentType, error) {
	for _, seg := range persistence.Segments() {
		if seg.String() == name {
			return seg, nil
		}
	}
	return 0, fmt.Errorf("unknown segment %q", name)
}
