// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

import "time"

// Pipeline is the entry point a worker goroutine calls once per received
// frame. It folds spec.md §2's stage chain into a single function with a
// state variable, replacing the original tail-call dispatch (SPEC_FULL.md
// §9 design notes).
type Pipeline struct {
	Tables *Tables
}

func NewPipeline(t *Tables) *Pipeline {
	return &Pipeline{Tables: t}
}

// Classify parses buf and runs it through every stage in order, returning
// the final verdict. shard identifies the caller's ownership domain for
// per-shard tables and counters (see ShardID); it must be stable for the
// life of the calling worker goroutine.
func (p *Pipeline) Classify(buf []byte, shard ShardID) Verdict {
	pkt := Parse(buf)
	return p.ClassifyPacket(&pkt, shard)
}

// ClassifyPacket runs an already-parsed Packet through the chain. Exposed
// separately so tests and the stateful-stage scenarios in spec.md §8 can
// construct a Packet directly instead of round-tripping through Parse.
func (p *Pipeline) ClassifyPacket(pkt *Packet, shard ShardID) Verdict {
	t := p.Tables
	snap := t.snapshot()
	now := uint64(time.Now().UnixNano())

	st := stageWhitelist
	for st != stageDone {
		switch st {
		case stageWhitelist:
			switch classifyWhitelist(pkt, snap, t.whitelistMisses, shard) {
			case PASS:
				return PASS
			case DROP:
				return DROP
			default:
				st = stagePanic
			}

		case stagePanic:
			if classifyPanic(snap) == DROP {
				return DROP
			}
			st = stageACL

		case stageACL:
			if classifyACL(pkt, snap) == DROP {
				return DROP
			}
			st = stageBlacklist

		case stageBlacklist:
			if classifyBlacklist(pkt, snap, t) == DROP {
				return DROP
			}
			st = stageFlowFastPath

		case stageFlowFastPath:
			outcome := classifyFlowFastPath(pkt, t, now)
			if outcome.verdict == PASS {
				t.pathStatsFast.Incr(shard)
				return PASS
			}
			if outcome.freshHit {
				t.pathStatsFast.Incr(shard)
				return classifyStateful(pkt, t, shard, now)
			}
			st = stageDeepInspection

		case stageDeepInspection:
			t.pathStatsSlow.Incr(shard)
			if classifySlowPath(pkt, t, snap, now) == DROP {
				return DROP
			}
			st = stageSlowPath

		case stageSlowPath:
			return classifyStateful(pkt, t, shard, now)
		}
	}

	// No stage matched (e.g. non-IP ethertype, or a packet with no L3):
	// default PASS, spec.md's "boundary behaviour".
	return PASS
}
