// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// classifySlowPath implements spec.md §4.7: it runs on every flow-cache
// miss or stale entry. It first publishes the flow's presence (so the
// next packet on this 5-tuple is a fast-path hit), then consults
// global_bypass and the inspector's bypass cache before deferring to the
// stateful stage.
func classifySlowPath(pkt *Packet, t *Tables, snap *controlSnapshot, now uint64) Verdict {
	publishFlowPresence(pkt, t, now)

	if snap.globalBypass {
		return CONTINUE
	}

	switch pkt.Family {
	case FamilyV4:
		if bypassHitV4(t, pkt.flowKey4()) {
			return DROP
		}
	case FamilyV6:
		if bypassHitV6(t, pkt.flowKey6()) {
			return DROP
		}
	}
	return CONTINUE
}

// publishFlowPresence writes both the TCP and UDP flow-table entries for
// this 5-tuple in one pass, giving the non-matching slot INVALID_PROTO so
// it can never satisfy a real lookup (spec.md §4.7 step 1, §4.1's key
// construction rule). This is the "dual write" throughput trick: the
// caller never has to branch on protocol to decide which table to skip.
func publishFlowPresence(pkt *Packet, t *Tables, now uint64) {
	switch pkt.Family {
	case FamilyV4:
		key := pkt.flowKey4()
		tcpKey, udpKey := key, key
		if pkt.IsTCP() {
			udpKey.Proto = InvalidProto
		} else {
			tcpKey.Proto = InvalidProto
		}
		t.tcpFlow.Upsert(tcpKey, now)
		t.udpFlow.Upsert(udpKey, now)
	case FamilyV6:
		key := pkt.flowKey6()
		tcpKey, udpKey := key, key
		if pkt.IsTCP() {
			udpKey.Proto = InvalidProto
		} else {
			tcpKey.Proto = InvalidProto
		}
		t.tcp6Flow.Upsert(tcpKey, now)
		t.udp6Flow.Upsert(udpKey, now)
	}
}

func bypassHitV4(t *Tables, key FlowKey4) bool {
	idx := hashFlowKey4(key) % flowTabSize
	v := t.flowTableV4[idx].Load()
	return v != nil && v.valid && v.key == key
}

func bypassHitV6(t *Tables, key FlowKey6) bool {
	idx := hashFlowKey6(key) % flowTabSize
	v := t.flowTableV6[idx].Load()
	return v != nil && v.valid && v.key == key
}
