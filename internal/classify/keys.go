// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// WhitelistKey is the byte-exact layout spec.md §6 fixes as stable across
// the data plane and the whitelist CLI: family, then 3 padding bytes
// (always zeroed, never left undefined), then a 16-byte address with an
// IPv4 address occupying the low 4 bytes and the rest zeroed.
type WhitelistKey struct {
	Family uint8
	_      [3]byte
	Addr   [16]byte
}

func whitelistKeyV4(addr uint32) WhitelistKey {
	var k WhitelistKey
	k.Family = FamilyV4
	k.Addr[0] = byte(addr >> 24)
	k.Addr[1] = byte(addr >> 16)
	k.Addr[2] = byte(addr >> 8)
	k.Addr[3] = byte(addr)
	return k
}

func whitelistKeyV6(addr [16]byte) WhitelistKey {
	return WhitelistKey{Family: FamilyV6, Addr: addr}
}

// ICMPKey classifies an ICMP packet by family and (type, code), the unit
// the ACL gate's icmp_allow table is keyed on (spec.md §3, §4.4).
type ICMPKey struct {
	Family uint8
	Type   uint8
	Code   uint8
}

// FlowKey4/FlowKey6 are the IPv4/IPv6 5-tuples used by the flow cache
// (tcp_flow/udp_flow/tcp6_flow/udp6_flow) and the inspector's bypass
// cache (flow_table_v4/flow_table_v6). Fields are stored exactly as
// parsed off the wire — see Packet's port-field comment — so that a key
// built on insert bit-matches the same key built on lookup.
type FlowKey4 struct {
	SrcIP, DstIP     uint32
	SrcPort, DstPort uint16
	Proto            uint8
	_                [3]byte
}

type FlowKey6 struct {
	SrcIP, DstIP     [16]byte
	SrcPort, DstPort uint16
	Proto            uint8
}

func (p *Packet) flowKey4() FlowKey4 {
	return FlowKey4{
		SrcIP: p.SrcIP4, DstIP: p.DstIP4,
		SrcPort: p.SrcPortWire, DstPort: p.DstPortWire,
		Proto: p.Proto,
	}
}

func (p *Packet) flowKey6() FlowKey6 {
	return FlowKey6{
		SrcIP: p.SrcIP6, DstIP: p.DstIP6,
		SrcPort: p.SrcPortWire, DstPort: p.DstPortWire,
		Proto: p.Proto,
	}
}

// RateKey identifies a source for the per-source TCP SYN rate limiter and
// UDP token bucket (spec.md §4.8). Unlike the flow 5-tuple, the rate
// tables are keyed on source address alone: v4 in the low 4 bytes of a
// zeroed 16-byte field, v6 using the full address, disambiguated by IsV6.
type RateKey struct {
	IsV6 bool
	Addr [16]byte
}

func rateKeyV4(addr uint32) RateKey {
	var k RateKey
	k.Addr[0] = byte(addr >> 24)
	k.Addr[1] = byte(addr >> 16)
	k.Addr[2] = byte(addr >> 8)
	k.Addr[3] = byte(addr)
	return k
}

func rateKeyV6(addr [16]byte) RateKey {
	return RateKey{IsV6: true, Addr: addr}
}
