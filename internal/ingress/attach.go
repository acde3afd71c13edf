// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ingress is the external collaborator spec.md §1 carves out of
// the classification core: "loading/attaching the program to a network
// interface" and "the host's packet-processing callback" that feeds
// frames into classify.Pipeline. Nothing in this package classifies a
// packet; it only moves bytes between a kernel transport and the
// pipeline and translates the resulting Verdict back into that
// transport's accept/drop primitive.
package ingress

import (
	"fmt"

	"flowgate.dev/flowgate/internal/logging"
)

// AttachConfig describes the baseline diversion rule an Attacher installs:
// traffic on Link is handed to queue QueueNum (NFQUEUE) so an nfqueue
// Reader can classify it.
type AttachConfig struct {
	Link      string // interface name, e.g. "eth0"
	TableName string // nftables table to own, e.g. "flowgate"
	QueueNum  uint16
}

// Attacher installs and removes the nftables rule that diverts a link's
// traffic into the configured NFQUEUE. It is deliberately narrow: one
// table, one chain, one rule, no rule introspection beyond what Detach
// needs to undo Attach.
type Attacher interface {
	Attach(cfg AttachConfig) error
	Detach(cfg AttachConfig) error
}

// NewAttacher returns the platform Attacher: a real nftables-backed one on
// Linux, a stub everywhere else that fails loudly rather than pretending
// to have installed a rule it didn't.
func NewAttacher(logger *logging.Logger) Attacher {
	return newPlatformAttacher(logger)
}

// errUnsupportedPlatform is returned by the non-Linux stub attacher; named
// so tests and callers can match on it without string comparison.
var errUnsupportedPlatform = fmt.Errorf("nftables attach is only supported on Linux")
