// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package ingress

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/mdlayher/packet"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/logging"
)

// htons converts a uint16 from host to network byte order, needed for the
// EtherType raw sockets filter on (every protocol, 0x0003 == ETH_P_ALL).
func htons(v uint16) uint16 { return v<<8 | v>>8 }

const ethPAll = 0x0003

// AFPacketReader is the second of §5's "two alternative implementations"
// of the host callback: it reads every frame off a raw AF_PACKET socket
// bound to one interface, classifies it, and re-emits PASS frames on a
// second interface (a userspace software bridge), silently discarding
// DROP frames. Unlike the NFQUEUE reader it does not ask netfilter to
// make the forwarding decision — it performs forwarding itself, which is
// why it needs two interfaces rather than one diversion rule.
type AFPacketReader struct {
	inIfi, outIfi *net.Interface
	pipeline      *classify.Pipeline
	shard         classify.ShardID
	logger        *logging.Logger

	in  *packet.Conn
	out *packet.Conn

	running atomic.Bool
	passed  atomic.Uint64
	dropped atomic.Uint64
}

// NewAFPacketReader binds inIface as the ingress side and outIface as the
// egress side of the bridge. Both must already exist and be up; this
// package never creates interfaces (spec.md §1's "loading/attaching... is
// an external collaborator" extends to link provisioning, not just
// program attachment).
func NewAFPacketReader(inIface, outIface string, pipeline *classify.Pipeline, shard classify.ShardID, logger *logging.Logger) (*AFPacketReader, error) {
	in, err := net.InterfaceByName(inIface)
	if err != nil {
		return nil, err
	}
	out, err := net.InterfaceByName(outIface)
	if err != nil {
		return nil, err
	}
	return &AFPacketReader{inIfi: in, outIfi: out, pipeline: pipeline, shard: shard, logger: logger}, nil
}

// Start opens both raw sockets and forwards frames until ctx is cancelled
// or Stop is called. It blocks until the receive loop exits.
func (r *AFPacketReader) Start(ctx context.Context) error {
	in, err := packet.Listen(r.inIfi, packet.Raw, int(htons(ethPAll)), nil)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := packet.Listen(r.outIfi, packet.Raw, int(htons(ethPAll)), nil)
	if err != nil {
		return err
	}
	defer out.Close()

	r.in, r.out = in, out
	r.running.Store(true)
	defer r.running.Store(false)

	go func() {
		<-ctx.Done()
		in.Close()
		out.Close()
	}()

	buf := make([]byte, 65536)
	for {
		n, _, err := in.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		if r.pipeline.Classify(frame, r.shard) != classify.PASS {
			r.dropped.Add(1)
			continue
		}
		r.passed.Add(1)

		dst := &packet.Addr{HardwareAddr: r.outIfi.HardwareAddr}
		if _, err := out.WriteTo(frame, dst); err != nil {
			r.logger.Warn("af_packet forward failed", "error", err)
		}
	}
}

// Stop closes both sockets, unblocking Start's receive loop.
func (r *AFPacketReader) Stop() {
	if r.in != nil {
		r.in.Close()
	}
	if r.out != nil {
		r.out.Close()
	}
}

// IsRunning reports whether the forwarding loop is active.
func (r *AFPacketReader) IsRunning() bool { return r.running.Load() }

// Stats returns the running pass/drop counters.
func (r *AFPacketReader) Stats() (passed, dropped uint64) {
	return r.passed.Load(), r.dropped.Load()
}
