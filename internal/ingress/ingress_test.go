// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingress

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/logging"
)

// These tests cover the parts of the ingress adapters that don't require
// CAP_NET_ADMIN or a live interface: construction, initial state, and the
// stub/real split staying behaviorally consistent across platforms.

func TestNFQueueReader_InitialState(t *testing.T) {
	tbl := classify.NewTables()
	p := classify.NewPipeline(tbl)
	logger := logging.New(logging.DefaultConfig())

	r := NewNFQueueReader(100, p, 0, logger)
	require.False(t, r.IsRunning())
	require.Equal(t, NFQueueStats{}, r.Stats())
}

func TestAttacher_ConstructsWithoutError(t *testing.T) {
	logger := logging.New(logging.DefaultConfig())
	a := NewAttacher(logger)
	require.NotNil(t, a)
}

func TestAttachConfig_FieldsRoundTrip(t *testing.T) {
	cfg := AttachConfig{Link: "eth0", TableName: "flowgate", QueueNum: 100}
	require.Equal(t, "eth0", cfg.Link)
	require.Equal(t, "flowgate", cfg.TableName)
	require.Equal(t, uint16(100), cfg.QueueNum)
}

func TestAFPacketReader_InitialState(t *testing.T) {
	tbl := classify.NewTables()
	p := classify.NewPipeline(tbl)
	logger := logging.New(logging.DefaultConfig())

	r, err := NewAFPacketReader("lo", "lo", p, 0, logger)
	require.NoError(t, err)
	require.False(t, r.IsRunning())
	passed, dropped := r.Stats()
	require.Zero(t, passed)
	require.Zero(t, dropped)
}

func TestReader_BothAdaptersSatisfyReader(t *testing.T) {
	tbl := classify.NewTables()
	p := classify.NewPipeline(tbl)
	logger := logging.New(logging.DefaultConfig())

	var _ Reader = NewNFQueueReader(100, p, 0, logger)
	afReader, err := NewAFPacketReader("lo", "lo", p, 0, logger)
	require.NoError(t, err)
	var _ Reader = afReader
}
