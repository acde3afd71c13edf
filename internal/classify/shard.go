// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

import "runtime"

// ShardCount is the number of data-plane ownership domains ("shards"),
// one per worker. The original program pinned a BPF_MAP_TYPE_PERCPU_*
// map slot to each CPU core; a shard here plays the same role for a
// worker goroutine (SPEC_FULL.md §9, "replacing kernel per-CPU map with
// a shard-per-worker pattern"). Callers that run one classify worker per
// OS thread should size this to runtime.GOMAXPROCS(0) and pass each
// worker a distinct, stable ShardID.
var ShardCount = runtime.GOMAXPROCS(0)

// ShardID identifies which shard a call belongs to. It is supplied by the
// caller (the ingress adapter that owns a worker loop), never derived
// inside the pipeline — the pipeline has no notion of "current CPU".
type ShardID int

// rateShards holds one lruTable[RateKey, V] per shard, giving the
// tcp_rate/udp_rl tables their "128 entries, per-CPU" capacity from
// spec.md §3: each shard is its own bounded LRU table, so a source
// pinned to one worker (the common case on a multi-queue NIC, per
// spec.md §4.8's design rationale) never contends with another shard.
type rateShards[V any] struct {
	tables []*lruTable[RateKey, V]
}

func newRateShards[V any](shards, perShardCapacity int) *rateShards[V] {
	rs := &rateShards[V]{tables: make([]*lruTable[RateKey, V], shards)}
	for i := range rs.tables {
		rs.tables[i] = newLRUTable[RateKey, V](perShardCapacity)
	}
	return rs
}

func (rs *rateShards[V]) shard(id ShardID) *lruTable[RateKey, V] {
	n := len(rs.tables)
	idx := int(id) % n
	if idx < 0 {
		idx += n
	}
	return rs.tables[idx]
}

// counterShards implements path_stats and the supplemented whitelist-miss
// counter (SPEC_FULL.md §12): one plain uint64 per shard, incremented
// without atomics because, by contract, only the shard's own worker ever
// writes it (spec.md §5 "Counter increments on per-CPU tables ... single
// writer per CPU"). Cross-shard reads always go through Sum, never a
// direct field read.
type counterShards struct {
	counts []uint64
}

func newCounterShards(shards int) *counterShards {
	return &counterShards{counts: make([]uint64, shards)}
}

// Incr bumps the counter owned by shard id. Non-atomic by construction;
// callers must not share a ShardID across concurrent goroutines.
func (c *counterShards) Incr(id ShardID) {
	n := len(c.counts)
	idx := int(id) % n
	if idx < 0 {
		idx += n
	}
	c.counts[idx]++
}

// Sum aggregates every shard's counter. This is a read-time sum, never a
// write-time coordination, matching spec.md §9's design note.
func (c *counterShards) Sum() uint64 {
	var total uint64
	for _, v := range c.counts {
		total += v
	}
	return total
}
