// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// classifyWhitelist is the first gate in the chain (spec.md §4.2). A hit
// overrides every downstream gate; a miss on an unsolicited ICMP echo is
// the one case this gate drops on its own rather than deferring.
func classifyWhitelist(pkt *Packet, snap *controlSnapshot, counters *counterShards, shard ShardID) Verdict {
	if pkt.Truncated {
		// "Any parser error: CONTINUE" (spec.md §4.2 step 6) — the pipeline
		// has nothing to classify yet, not even a source address.
		return CONTINUE
	}

	var key WhitelistKey
	switch pkt.Family {
	case FamilyV4:
		key = whitelistKeyV4(pkt.SrcIP4)
	case FamilyV6:
		key = whitelistKeyV6(pkt.SrcIP6)
	default:
		return CONTINUE
	}

	if _, ok := snap.whitelist[key]; ok {
		return PASS
	}
	counters.Incr(shard)

	if isICMPEcho(pkt) {
		return DROP
	}
	return CONTINUE
}

func isICMPEcho(pkt *Packet) bool {
	switch pkt.Proto {
	case protoICMPv4:
		return pkt.ICMPType == icmpV4EchoRequest || pkt.ICMPType == icmpV4EchoReply
	case protoICMPv6:
		return pkt.ICMPType == icmpV6EchoRequest || pkt.ICMPType == icmpV6EchoReply
	default:
		return false
	}
}
