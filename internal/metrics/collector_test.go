// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"flowgate.dev/flowgate/internal/classify"
)

func TestCollector_SumsAcrossShards(t *testing.T) {
	tbl := classify.NewTables()
	tbl.AllowACLPort(22)
	p := classify.NewPipeline(tbl)

	// Drive traffic across multiple shards so the collector must sum, not
	// read one shard's counter.
	frame := tcpACKFrame(t, "198.51.100.1", "203.0.113.1", 1234, 22)
	for shard := classify.ShardID(0); shard < classify.ShardID(4); shard++ {
		p.ClassifyPacket(mustParse(frame), shard)
	}

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(New(tbl)))

	got, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, got)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestCollector_DescribeEmitsThreeDescriptors(t *testing.T) {
	tbl := classify.NewTables()
	ch := make(chan *prometheus.Desc, 8)
	New(tbl).Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	require.Len(t, names, 3)
	require.True(t, strings.Contains(names[0], "flowgate_"))
}
