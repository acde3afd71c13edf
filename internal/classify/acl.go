// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// classifyACL enforces the destination-port bitmap and ICMP allow set
// (spec.md §4.4). Only TCP, UDP, and ICMP survive this gate; everything
// else is dropped outright.
func classifyACL(pkt *Packet, snap *controlSnapshot) Verdict {
	if pkt.Family == 0 {
		// No L3 parsed at all (non-IP ethertype, or truncated before IP):
		// no stage matches, not even this one (spec.md "boundary
		// behaviour": an ETH_HLEN-only frame is a default PASS).
		return CONTINUE
	}

	switch {
	case pkt.IsTCP(), pkt.IsUDP():
		port := pkt.DstPortHost()
		if port >= 64 {
			return DROP
		}
		if snap.aclPorts&(uint64(1)<<port) == 0 {
			return DROP
		}
		return CONTINUE

	case pkt.IsICMP():
		key := ICMPKey{Family: pkt.Family, Type: pkt.ICMPType, Code: pkt.ICMPCode}
		if _, ok := snap.icmpAllow[key]; !ok {
			return DROP
		}
		return CONTINUE

	default:
		return DROP
	}
}
