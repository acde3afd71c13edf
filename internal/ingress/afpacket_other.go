// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package ingress

import (
	"context"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/logging"
)

// AFPacketReader is the non-Linux stub: AF_PACKET is a Linux-specific
// socket family.
type AFPacketReader struct{}

func NewAFPacketReader(_, _ string, _ *classify.Pipeline, _ classify.ShardID, _ *logging.Logger) (*AFPacketReader, error) {
	return &AFPacketReader{}, nil
}

func (r *AFPacketReader) Start(_ context.Context) error   { return errUnsupportedPlatform }
func (r *AFPacketReader) Stop()                           {}
func (r *AFPacketReader) IsRunning() bool                 { return false }
func (r *AFPacketReader) Stats() (passed, dropped uint64) { return 0, 0 }
