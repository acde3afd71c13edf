// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package ingress

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/florianl/go-nfqueue/v2"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/logging"
)

// NFQueueStats mirrors the counters the teacher's ctlplane.NFQueueReader
// exposes, so a metrics collector can report them the same way regardless
// of which ingress adapter is running.
type NFQueueStats struct {
	PacketsProcessed uint64
	PacketsAccepted  uint64
	PacketsDropped   uint64
	VerdictErrors    uint64
}

// NFQueueReader reads frames diverted to an NFQUEUE by the nftables rule
// Attacher installs, classifies each one, and issues the matching
// NF_ACCEPT/NF_DROP verdict. It never makes a classification decision
// itself — classify.Pipeline does — it is purely the transport shim
// spec.md §1 calls out as an external collaborator.
type NFQueueReader struct {
	queueNum uint16
	pipeline *classify.Pipeline
	shard    classify.ShardID
	logger   *logging.Logger

	mu      sync.Mutex
	nf      *nfqueue.Nfqueue
	cancel  context.CancelFunc
	running atomic.Bool

	processed atomic.Uint64
	accepted  atomic.Uint64
	dropped   atomic.Uint64
	errs      atomic.Uint64
}

// NewNFQueueReader constructs a reader bound to queueNum. shard identifies
// this reader's counter/table ownership domain (classify.ShardID); a
// deployment running one reader per CPU would assign each a distinct
// shard, the per-CPU-map stand-in spec.md §9 describes.
func NewNFQueueReader(queueNum uint16, pipeline *classify.Pipeline, shard classify.ShardID, logger *logging.Logger) *NFQueueReader {
	return &NFQueueReader{queueNum: queueNum, pipeline: pipeline, shard: shard, logger: logger}
}

// Start opens the queue and begins classifying packets until Stop is
// called or ctx is cancelled. It blocks until the read loop exits.
func (r *NFQueueReader) Start(ctx context.Context) error {
	cfg := &nfqueue.Config{
		NfQueue:      r.queueNum,
		MaxPacketLen: 0xFFFF,
		MaxQueueLen:  0xFF,
		Copymode:     nfqueue.NfQnlCopyPacket,
		WriteTimeout: 15 * time.Millisecond,
	}

	nf, err := nfqueue.Open(cfg)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.nf = nf
	r.cancel = cancel
	r.mu.Unlock()

	r.running.Store(true)
	defer r.running.Store(false)

	// RegisterWithErrorFunc only starts the receive goroutine; wait for
	// cancellation before closing the queue handle.
	if err := nf.RegisterWithErrorFunc(runCtx, r.handle, r.handleError); err != nil {
		nf.Close()
		return err
	}
	<-runCtx.Done()
	nf.Close()
	return nil
}

// handle is the per-packet hook. A missing PacketID or Payload can't be
// verdicted or classified; it is counted as a verdict error and left for
// netfilter's own fallback behavior.
func (r *NFQueueReader) handle(a nfqueue.Attribute) int {
	r.processed.Add(1)

	if a.PacketID == nil || a.Payload == nil {
		r.errs.Add(1)
		return 0
	}

	verdict := r.pipeline.Classify(*a.Payload, r.shard)

	nfVerdict := nfqueue.NfDrop
	if verdict == classify.PASS {
		nfVerdict = nfqueue.NfAccept
	}

	if err := r.nf.SetVerdict(*a.PacketID, nfVerdict); err != nil {
		r.errs.Add(1)
		r.logger.Warn("nfqueue set verdict failed", "id", *a.PacketID, "error", err)
		return 0
	}

	if verdict == classify.PASS {
		r.accepted.Add(1)
	} else {
		r.dropped.Add(1)
	}
	return 0
}

func (r *NFQueueReader) handleError(err error) int {
	if err == nil {
		return 0
	}
	r.errs.Add(1)
	r.logger.Warn("nfqueue read error", "error", err)
	return 0
}

// Stop cancels the read loop and closes the underlying queue handle.
func (r *NFQueueReader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning reports whether the read loop is currently active.
func (r *NFQueueReader) IsRunning() bool { return r.running.Load() }

// Stats returns a snapshot of the reader's counters.
func (r *NFQueueReader) Stats() NFQueueStats {
	return NFQueueStats{
		PacketsProcessed: r.processed.Load(),
		PacketsAccepted:  r.accepted.Load(),
		PacketsDropped:   r.dropped.Load(),
		VerdictErrors:    r.errs.Load(),
	}
}
