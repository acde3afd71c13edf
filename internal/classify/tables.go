// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

import (
	"sync/atomic"

	"flowgate.dev/flowgate/internal/ebpfmap"
)

// Capacities from spec.md §3. Kept as named constants rather than inlined
// literals so the table constructors read the same numbers the spec
// table does.
const (
	whitelistCapacity  = 64
	icmpAllowCapacity  = 32
	ipv4DropCapacity   = 4096
	ipv6DropCapacity   = 4096
	flowTabSize        = 65536 // FLOW_TAB_SZ, direct-mapped bypass cache
	tcpFlowCapacity    = 32768
	udpFlowCapacity    = 32768
	tcp6FlowCapacity   = 32768
	udp6FlowCapacity   = 32768 // spec.md §14(b): fixed uniformly, not 1024
	rateTableCapacity  = 128   // per shard, both tcp_rate and udp_rl
)

// Config is the cfg table: the UDP token-bucket refill interval and burst
// size. A zero field means "unset" and is replaced by its default at
// lookup time (spec.md §3, §7).
type Config struct {
	NS    uint64 // refill interval, nanoseconds per token
	Burst uint32
}

const (
	defaultRefillNS = 1_000_000
	defaultBurst    = 100
)

// Effective substitutes the documented defaults for any zero field.
func (c Config) Effective() Config {
	if c.NS == 0 {
		c.NS = defaultRefillNS
	}
	if c.Burst == 0 {
		c.Burst = defaultBurst
	}
	return c
}

// controlSnapshot is every control-plane-owned table bundled into one
// immutable value. The data plane only ever holds a *controlSnapshot it
// atomically loaded; control-plane writers build a new snapshot and
// atomically swap it in. This gives every read on the hot path a
// consistent, lock-free view, and makes "the data plane never mutates
// control-plane-owned tables" (spec.md §3 invariant) true by construction
// rather than by convention.
type controlSnapshot struct {
	whitelist    map[WhitelistKey]struct{}
	panic        bool
	globalBypass bool
	aclPorts     uint64 // bitmap over ports 0..63
	icmpAllow    map[ICMPKey]struct{}
	ipv4Drop     map[uint32]struct{}
	ipv6Drop     map[[16]byte]struct{}
	cfg          Config
}

func emptySnapshot() *controlSnapshot {
	return &controlSnapshot{
		whitelist: make(map[WhitelistKey]struct{}),
		icmpAllow: make(map[ICMPKey]struct{}),
		ipv4Drop:  make(map[uint32]struct{}),
		ipv6Drop:  make(map[[16]byte]struct{}),
	}
}

// clone returns a deep copy suitable as the basis for the next snapshot,
// so a control-plane writer can change one table without racing readers
// of the table it didn't touch.
func (s *controlSnapshot) clone() *controlSnapshot {
	n := &controlSnapshot{
		panic:        s.panic,
		globalBypass: s.globalBypass,
		aclPorts:     s.aclPorts,
		cfg:          s.cfg,
		whitelist:    make(map[WhitelistKey]struct{}, len(s.whitelist)),
		icmpAllow:    make(map[ICMPKey]struct{}, len(s.icmpAllow)),
		ipv4Drop:     make(map[uint32]struct{}, len(s.ipv4Drop)),
		ipv6Drop:     make(map[[16]byte]struct{}, len(s.ipv6Drop)),
	}
	for k := range s.whitelist {
		n.whitelist[k] = struct{}{}
	}
	for k := range s.icmpAllow {
		n.icmpAllow[k] = struct{}{}
	}
	for k := range s.ipv4Drop {
		n.ipv4Drop[k] = struct{}{}
	}
	for k := range s.ipv6Drop {
		n.ipv6Drop[k] = struct{}{}
	}
	return n
}

// bypassV4/bypassV6 mirror the original program's bypass_v4/bypass_v6
// structs (original_source/include/maps.h): the inspector's full 5-tuple,
// stored so the reader can validate a hash-collided slot before trusting
// it (spec.md §4.7).
type bypassV4 struct {
	valid bool
	key   FlowKey4
}

type bypassV6 struct {
	valid bool
	key   FlowKey6
}

// Tables bundles every table spec.md §3 names. It is passed by shared
// reference into the pipeline (SPEC_FULL.md §9, "replacing implicit
// global maps"): one *Tables per running filter instance, constructed
// once and shared across every worker goroutine.
type Tables struct {
	control atomic.Pointer[controlSnapshot]

	// Inspector bypass cache: direct-mapped, FLOW_TAB_SZ slots per
	// family. Written by the (external) deep-inspection engine, read by
	// the data plane (spec.md §4.7, §5).
	flowTableV4 []atomic.Pointer[bypassV4]
	flowTableV6 []atomic.Pointer[bypassV6]

	// bypassStore mirrors every bypass-cache write through to a pinned
	// eBPF map, when AttachBypassStore has wired one in. Nil means
	// pure in-memory operation (tests, non-Linux dev).
	bypassStore *ebpfmap.Store

	// Data-plane flow cache: "is this 5-tuple recently seen" (spec.md
	// §4.6, §4.7).
	tcpFlow  *lruTable[FlowKey4, uint64]
	udpFlow  *lruTable[FlowKey4, uint64]
	tcp6Flow *lruTable[FlowKey6, uint64]
	udp6Flow *lruTable[FlowKey6, uint64]

	// Stateful stage: per-source SYN rate windows and UDP token buckets,
	// one LRU table per shard (spec.md §4.8, §5).
	tcpRate *rateShards[tcpRateEntry]
	udpRL   *rateShards[udpRLEntry]

	// path_stats and the supplemented whitelist-miss counter
	// (SPEC_FULL.md §12), both per-shard, summed at read time.
	pathStatsFast   *counterShards
	pathStatsSlow   *counterShards
	whitelistMisses *counterShards
}

type tcpRateEntry struct {
	windowStart uint64
	synCount    uint32
}

type udpRLEntry struct {
	lastSeen uint64
	tokens   uint32
}

// NewTables constructs an empty Tables sized per spec.md §3, with
// shards*count matching ShardCount unless overridden.
func NewTables() *Tables {
	t := &Tables{
		flowTableV4:     make([]atomic.Pointer[bypassV4], flowTabSize),
		flowTableV6:     make([]atomic.Pointer[bypassV6], flowTabSize),
		tcpFlow:         newLRUTable[FlowKey4, uint64](tcpFlowCapacity),
		udpFlow:         newLRUTable[FlowKey4, uint64](udpFlowCapacity),
		tcp6Flow:        newLRUTable[FlowKey6, uint64](tcp6FlowCapacity),
		udp6Flow:        newLRUTable[FlowKey6, uint64](udp6FlowCapacity),
		tcpRate:         newRateShards[tcpRateEntry](ShardCount, rateTableCapacity),
		udpRL:           newRateShards[udpRLEntry](ShardCount, rateTableCapacity),
		pathStatsFast:   newCounterShards(ShardCount),
		pathStatsSlow:   newCounterShards(ShardCount),
		whitelistMisses: newCounterShards(ShardCount),
	}
	t.control.Store(emptySnapshot())
	return t
}

func (t *Tables) snapshot() *controlSnapshot {
	return t.control.Load()
}

// mutate atomically replaces the control snapshot with the result of
// applying fn to a clone of the current one. Control-plane writers (the
// whitelist CLI, the config loader) are the only callers; the data plane
// never calls this.
func (t *Tables) mutate(fn func(*controlSnapshot)) {
	next := t.snapshot().clone()
	fn(next)
	t.control.Store(next)
}

// PathStats sums path_stats[fast] and path_stats[slow] across shards
// (spec.md §6: "the exporter ... must sum per-CPU shards").
func (t *Tables) PathStats() (fast, slow uint64) {
	return t.pathStatsFast.Sum(), t.pathStatsSlow.Sum()
}

// WhitelistMisses sums the supplemented whitelist-miss counter
// (SPEC_FULL.md §12) across shards.
func (t *Tables) WhitelistMisses() uint64 {
	return t.whitelistMisses.Sum()
}
