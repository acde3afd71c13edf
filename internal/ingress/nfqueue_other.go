// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package ingress

import (
	"context"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/logging"
)

// NFQueueStats mirrors the Linux reader's counters, always zero here.
type NFQueueStats struct {
	PacketsProcessed uint64
	PacketsAccepted  uint64
	PacketsDropped   uint64
	VerdictErrors    uint64
}

// NFQueueReader is the non-Linux stub: NFQUEUE is a netfilter construct
// and has no meaning off Linux, so Start always fails rather than
// pretending to read packets that never arrive.
type NFQueueReader struct{}

func NewNFQueueReader(_ uint16, _ *classify.Pipeline, _ classify.ShardID, _ *logging.Logger) *NFQueueReader {
	return &NFQueueReader{}
}

func (r *NFQueueReader) Start(_ context.Context) error { return errUnsupportedPlatform }
func (r *NFQueueReader) Stop()                         {}
func (r *NFQueueReader) IsRunning() bool               { return false }
func (r *NFQueueReader) Stats() NFQueueStats           { return NFQueueStats{} }
