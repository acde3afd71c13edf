// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// classifyBlacklist enforces the explicit drop lists plus the reserved
// address ranges spec.md §4.5 folds into the same gate. A hit evicts any
// bypass record the inspector may have installed for the flow, so a
// source cannot stay bypassed after it is blacklisted.
func classifyBlacklist(pkt *Packet, snap *controlSnapshot, t *Tables) Verdict {
	var blocked bool
	switch pkt.Family {
	case FamilyV4:
		_, listed := snap.ipv4Drop[pkt.SrcIP4]
		blocked = listed || isPrivateV4(pkt.SrcIP4)
	case FamilyV6:
		_, listed := snap.ipv6Drop[pkt.SrcIP6]
		blocked = listed || isULA(pkt.SrcIP6) || isLinkLocalV6(pkt.SrcIP6)
	default:
		return CONTINUE
	}

	if !blocked {
		return CONTINUE
	}

	if pkt.IsTCP() || pkt.IsUDP() {
		switch pkt.Family {
		case FamilyV4:
			t.deleteBypassV4(pkt.flowKey4())
		case FamilyV6:
			t.deleteBypassV6(pkt.flowKey6())
		}
	}
	return DROP
}

// isPrivateV4 covers RFC1918 (10/8, 172.16/12, 192.168/16) and link-local
// (169.254/16), all in host-independent network-byte-order comparisons
// since pkt.SrcIP4 is the big-endian 32-bit value read straight off the
// wire by load32.
func isPrivateV4(addr uint32) bool {
	if addr>>24 == 10 {
		return true // 10.0.0.0/8
	}
	if addr>>20 == 0xAC1 { // 172.16.0.0/12: top 12 bits == 1010_1100_0001
		return true
	}
	if addr>>16 == 0xC0A8 {
		return true // 192.168.0.0/16
	}
	if addr>>16 == 0xA9FE {
		return true // 169.254.0.0/16
	}
	return false
}

// isULA reports fc00::/7: the first byte equals 0xFC (1111_1100) once its
// least-significant bit is masked off with 0xFE.
func isULA(addr [16]byte) bool {
	return addr[0]&0xFE == 0xFC
}

// isLinkLocalV6 reports fe80::/10.
func isLinkLocalV6(addr [16]byte) bool {
	return addr[0] == 0xFE && addr[1]&0xC0 == 0x80
}

func (t *Tables) deleteBypassV4(key FlowKey4) {
	idx := hashFlowKey4(key) % flowTabSize
	if v := t.flowTableV4[idx].Load(); v != nil && v.valid && v.key == key {
		t.flowTableV4[idx].Store(&bypassV4{})
		if t.bypassStore != nil {
			t.bypassStore.Delete(idx)
		}
	}
}

func (t *Tables) deleteBypassV6(key FlowKey6) {
	idx := hashFlowKey6(key) % flowTabSize
	if v := t.flowTableV6[idx].Load(); v != nil && v.valid && v.key == key {
		t.flowTableV6[idx].Store(&bypassV6{})
		if t.bypassStore != nil {
			t.bypassStore.Delete(idx)
		}
	}
}
