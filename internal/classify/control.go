// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// This file is the control-plane mutation surface: every call here
// writes a table spec.md §3 marks "control-plane writes". None of it runs
// on the packet path; internal/controlplane and cmd/flowgate-wl are the
// only intended callers.

// WhitelistAddV4/WhitelistAddV6 and WhitelistDelV4/WhitelistDelV6 mutate
// the whitelist table. Round-tripping add then del for the same address
// leaves the table identical to its state before the add (spec.md §8
// "Round-trip").
func (t *Tables) WhitelistAddV4(addr uint32) {
	k := whitelistKeyV4(addr)
	t.mutate(func(s *controlSnapshot) { s.whitelist[k] = struct{}{} })
}

func (t *Tables) WhitelistDelV4(addr uint32) {
	k := whitelistKeyV4(addr)
	t.mutate(func(s *controlSnapshot) { delete(s.whitelist, k) })
}

func (t *Tables) WhitelistAddV6(addr [16]byte) {
	k := whitelistKeyV6(addr)
	t.mutate(func(s *controlSnapshot) { s.whitelist[k] = struct{}{} })
}

func (t *Tables) WhitelistDelV6(addr [16]byte) {
	k := whitelistKeyV6(addr)
	t.mutate(func(s *controlSnapshot) { delete(s.whitelist, k) })
}

// SetPanic sets or clears the global panic flag (spec.md §4.3).
func (t *Tables) SetPanic(on bool) {
	t.mutate(func(s *controlSnapshot) { s.panic = on })
}

// SetGlobalBypass sets or clears global_bypass (spec.md §4.7 step 2).
func (t *Tables) SetGlobalBypass(on bool) {
	t.mutate(func(s *controlSnapshot) { s.globalBypass = on })
}

// SetConfig replaces the cfg table wholesale.
func (t *Tables) SetConfig(cfg Config) {
	t.mutate(func(s *controlSnapshot) { s.cfg = cfg })
}

// SetACLPorts replaces the acl_ports bitmap wholesale. Ports >= 64 cannot
// be represented (spec.md §4.4, §14(a)); callers validate that before
// calling this, typically in internal/controlplane's config loader.
func (t *Tables) SetACLPorts(bitmap uint64) {
	t.mutate(func(s *controlSnapshot) { s.aclPorts = bitmap })
}

// AllowACLPort sets a single bit in the acl_ports bitmap.
func (t *Tables) AllowACLPort(port uint16) {
	if port >= 64 {
		return
	}
	t.mutate(func(s *controlSnapshot) { s.aclPorts |= uint64(1) << port })
}

// AllowICMP adds a (family, type, code) entry to icmp_allow.
func (t *Tables) AllowICMP(family, typ, code uint8) {
	k := ICMPKey{Family: family, Type: typ, Code: code}
	t.mutate(func(s *controlSnapshot) { s.icmpAllow[k] = struct{}{} })
}

// BlacklistAddV4/DelV4 and BlacklistAddV6/DelV6 mutate ipv4_drop /
// ipv6_drop (spec.md §4.5). They are independent of the private/ULA/
// link-local checks, which are computed rather than stored.
func (t *Tables) BlacklistAddV4(addr uint32) {
	t.mutate(func(s *controlSnapshot) { s.ipv4Drop[addr] = struct{}{} })
}

func (t *Tables) BlacklistDelV4(addr uint32) {
	t.mutate(func(s *controlSnapshot) { delete(s.ipv4Drop, addr) })
}

func (t *Tables) BlacklistAddV6(addr [16]byte) {
	t.mutate(func(s *controlSnapshot) { s.ipv6Drop[addr] = struct{}{} })
}

func (t *Tables) BlacklistDelV6(addr [16]byte) {
	t.mutate(func(s *controlSnapshot) { delete(s.ipv6Drop, addr) })
}

// PublishBypassV4/PublishBypassV6 let the (external) deep-inspection
// engine mark a flow as hostile (spec.md §4.7, glossary "Bypass cache").
// The slot is chosen by hashing the 5-tuple modulo FLOW_TAB_SZ; a
// collision silently overwrites the previous occupant, which spec.md
// calls out as an acceptable false-miss, never a wrong verdict.
func (t *Tables) PublishBypassV4(key FlowKey4) {
	idx := hashFlowKey4(key) % flowTabSize
	t.flowTableV4[idx].Store(&bypassV4{valid: true, key: key})
	if t.bypassStore != nil {
		t.bypassStore.Put(idx, recordV4(key))
	}
}

func (t *Tables) PublishBypassV6(key FlowKey6) {
	idx := hashFlowKey6(key) % flowTabSize
	t.flowTableV6[idx].Store(&bypassV6{valid: true, key: key})
	if t.bypassStore != nil {
		t.bypassStore.Put(idx, recordV6(key))
	}
}

// hashFlowKey4/hashFlowKey6 combine the 5-tuple into a slot index. Any
// reasonably distributed hash is correct here: a collision only costs one
// extra deep-inspection pass (spec.md §4.7), it can never produce a wrong
// verdict, because the reader always validates the stored 5-tuple against
// the packet's own before trusting the slot.
func hashFlowKey4(k FlowKey4) uint32 {
	h := uint64(k.SrcIP)*31 + uint64(k.DstIP)
	h = h*31 + uint64(k.SrcPort)
	h = h*31 + uint64(k.DstPort)
	h = h*31 + uint64(k.Proto)
	return uint32(h)
}

func hashFlowKey6(k FlowKey6) uint32 {
	var h uint64
	for _, b := range k.SrcIP {
		h = h*31 + uint64(b)
	}
	for _, b := range k.DstIP {
		h = h*31 + uint64(b)
	}
	h = h*31 + uint64(k.SrcPort)
	h = h*31 + uint64(k.DstPort)
	h = h*31 + uint64(k.Proto)
	return uint32(h)
}
