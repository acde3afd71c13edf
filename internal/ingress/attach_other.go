// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package ingress

import "flowgate.dev/flowgate/internal/logging"

// stubAttacher is the non-Linux Attacher: nftables/netlink have no
// meaning off Linux, so it refuses rather than silently no-opping,
// mirroring the teacher's NFQueueReader stub convention.
type stubAttacher struct{}

func newPlatformAttacher(_ *logging.Logger) Attacher {
	return &stubAttacher{}
}

func (*stubAttacher) Attach(AttachConfig) error { return errUnsupportedPlatform }
func (*stubAttacher) Detach(AttachConfig) error { return errUnsupportedPlatform }
