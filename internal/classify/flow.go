// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// Idle/window/TTL constants, all in nanoseconds (spec.md §3, §4.6, §4.8).
const (
	tcpIdleNS    = 15_000_000_000
	udpIdleNS    = 5_000_000_000
	rateWindowNS = 1_000_000_000
	ttlNS        = 5_000_000_000

	synRateLimit  = 20
	synBurstLimit = 100
)

// flowOutcome is what the fast path decided, handed to the pipeline loop
// so it can pick the next stage without the fast path knowing about
// dispatch ordering.
type flowOutcome struct {
	verdict   Verdict // CONTINUE means: fall through to the slow path
	freshHit  bool    // true on a fresh TCP/UDP hit: enter stateful directly
}

// classifyFlowFastPath implements spec.md §4.6. ICMP short-circuits to
// PASS; a fresh TCP/UDP hit is handed to the stateful stage; a miss or
// stale entry continues to the deep-inspection gate.
func classifyFlowFastPath(pkt *Packet, t *Tables, now uint64) flowOutcome {
	if pkt.IsICMP() {
		return flowOutcome{verdict: PASS}
	}
	if !pkt.IsTCP() && !pkt.IsUDP() {
		return flowOutcome{verdict: CONTINUE}
	}

	var ts uint64
	var hit bool
	switch {
	case pkt.IsTCP() && pkt.Family == FamilyV4:
		ts, hit = t.tcpFlow.Lookup(pkt.flowKey4())
	case pkt.IsTCP() && pkt.Family == FamilyV6:
		ts, hit = t.tcp6Flow.Lookup(pkt.flowKey6())
	case pkt.IsUDP() && pkt.Family == FamilyV4:
		ts, hit = t.udpFlow.Lookup(pkt.flowKey4())
	case pkt.IsUDP() && pkt.Family == FamilyV6:
		ts, hit = t.udp6Flow.Lookup(pkt.flowKey6())
	}

	fresh := hit && !isStale(pkt, ts, now)

	// FIN/RST eviction is unconditional on whether the lookup hit, and
	// applies to TCP only (spec.md §4.6).
	if pkt.IsTCP() && pkt.TCPFlags&(tcpFIN|tcpRST) != 0 {
		if pkt.Family == FamilyV4 {
			t.tcpFlow.Delete(pkt.flowKey4())
		} else {
			t.tcp6Flow.Delete(pkt.flowKey6())
		}
	}

	if !fresh {
		return flowOutcome{verdict: CONTINUE}
	}
	return flowOutcome{verdict: CONTINUE, freshHit: true}
}

func isStale(pkt *Packet, timestamp, now uint64) bool {
	var threshold uint64 = udpIdleNS
	if pkt.IsTCP() {
		threshold = tcpIdleNS
	}
	return now-timestamp > threshold
}
