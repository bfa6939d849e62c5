package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izot/lon-core/pkg/datalink"
	"github.com/izot/lon-core/pkg/network"
)

func TestCollectorReportsLiveCounterValues(t *testing.T) {
	var nwStats network.Statistics
	var dlStats datalink.Statistics

	nwStats.Increment(network.LcsL3Rx)
	nwStats.Increment(network.LcsL3Rx)
	dlStats.Increment(datalink.LcsRxError)

	reg := Register(&nwStats, &dlStats)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, int(statKindTotal(&nwStats, &dlStats)), count)
}

func statKindTotal(nwStats *network.Statistics, dlStats *datalink.Statistics) int {
	return len(nwStats.Snapshot()) + len(dlStats.Snapshot())
}
