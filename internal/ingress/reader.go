// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingress

import "context"

// Reader is the shape both ingress adapters share: NewNFQueueReader and
// NewAFPacketReader each return one, letting cmd/flowgated pick an
// ingress mode at startup without a type switch.
type Reader interface {
	Start(ctx context.Context) error
	Stop()
}
