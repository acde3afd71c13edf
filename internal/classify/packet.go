// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

import "encoding/binary"

// Ethernet/IP wire constants. Named for the fields they identify, not for
// any particular syscall header.
const (
	ethHLen = 14 // dst MAC(6) + src MAC(6) + ethertype(2)

	etherTypeIPv4 uint16 = 0x0800
	etherTypeIPv6 uint16 = 0x86DD

	ipv4MinHLen = 20
	ipv6HLen    = 40

	tcpMinHLen = 20
	udpHLen    = 8
	icmpHLen   = 8 // enough to read type/code; we never read past it

	protoICMPv4 uint8 = 1
	protoTCP    uint8 = 6
	protoUDP    uint8 = 17
	protoICMPv6 uint8 = 58

	// InvalidProto marks a deliberately-unmatchable key, used when the
	// slow path writes both the TCP and UDP flow slots in one pass (see
	// bypass.go) without branching on the real protocol.
	InvalidProto uint8 = 255

	// FamilyV4/FamilyV6 identify the address family of a parsed packet
	// or a whitelist/blacklist key. Values follow AF_INET/AF_INET6 so the
	// whitelist CLI's on-disk key layout (SPEC_FULL.md §6) matches the
	// data plane's in-memory one without a translation table.
	FamilyV4 uint8 = 2
	FamilyV6 uint8 = 10
)

// TCP control bits, as laid out in the single flags byte at TCP header
// offset 13.
const (
	tcpFIN uint8 = 1 << 0
	tcpSYN uint8 = 1 << 1
	tcpRST uint8 = 1 << 2
	tcpACK uint8 = 1 << 4
)

// ICMP echo request/reply types, the one case the whitelist gate inspects
// before deferring to the ACL (spec.md §4.2).
const (
	icmpV4EchoRequest uint8 = 8
	icmpV4EchoReply   uint8 = 0
	icmpV6EchoRequest uint8 = 128
	icmpV6EchoReply   uint8 = 129
)

// Packet is the result of parsing one Ethernet frame. Every field is
// either zero-valued or carries the bit pattern exactly as it appeared on
// the wire; no stage may mutate it.
type Packet struct {
	Truncated bool // a bounds-checked load ran past data-end

	EtherType uint16
	Family    uint8 // FamilyV4, FamilyV6, or 0 if neither/truncated

	SrcIP4, DstIP4 uint32  // valid when Family == FamilyV4
	SrcIP6, DstIP6 [16]byte // valid when Family == FamilyV6

	Proto uint8 // real L4 protocol: protoTCP, protoUDP, protoICMPv4/v6, or 0

	// Port fields are stored exactly as the two wire bytes decode under
	// binary.LittleEndian: this is the "no host-order normalisation"
	// representation spec.md §4.1 requires for 5-tuple keys, where the
	// only contract is that insert and lookup build the same bit pattern
	// from the same bytes. ACL port masking instead reads the same bytes
	// through DstPortHost, which performs the network-to-host conversion
	// spec.md §4.4 calls for explicitly.
	SrcPortWire, DstPortWire uint16
	dstPortBytes             [2]byte

	TCPFlags uint8 // valid when Proto == protoTCP

	ICMPType, ICMPCode uint8 // valid when Proto == protoICMPv4/v6
}

// DstPortHost returns the destination port converted from network to host
// byte order, per spec.md §4.4.
func (p *Packet) DstPortHost() uint16 {
	return binary.BigEndian.Uint16(p.dstPortBytes[:])
}

// IsTCP/IsUDP/IsICMP classify Proto for readability at call sites.
func (p *Packet) IsTCP() bool  { return p.Proto == protoTCP }
func (p *Packet) IsUDP() bool  { return p.Proto == protoUDP }
func (p *Packet) IsICMP() bool { return p.Proto == protoICMPv4 || p.Proto == protoICMPv6 }

// bounds-checked load helpers. Every header field read in Parse goes
// through one of these; there is no raw pointer arithmetic (SPEC_FULL.md
// §9 "design notes").

func load8(buf []byte, off int) (uint8, bool) {
	if off < 0 || off+1 > len(buf) {
		return 0, false
	}
	return buf[off], true
}

func load16(buf []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(buf) {
		return 0, false
	}
	return binary.BigEndian.Uint16(buf[off : off+2]), true
}

func load32(buf []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(buf) {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[off : off+4]), true
}

func loadN(buf []byte, off, n int) ([]byte, bool) {
	if off < 0 || off+n > len(buf) {
		return nil, false
	}
	return buf[off : off+n], true
}

// Parse extracts the L2/L3/L4 fields used by the classification pipeline
// from a single Ethernet frame. Every load is bounds-checked against
// len(buf) (data-end); on a failed load Parse returns a Packet with
// Truncated set, never an error — the pipeline treats a truncated packet
// as PASS (spec.md §4.1, §7), except inside the whitelist gate where it
// falls through to CONTINUE instead.
func Parse(buf []byte) Packet {
	var pkt Packet

	etherType, ok := load16(buf, 12)
	if !ok {
		pkt.Truncated = true
		return pkt
	}
	pkt.EtherType = etherType

	switch etherType {
	case etherTypeIPv4:
		parseIPv4(buf, &pkt)
	case etherTypeIPv6:
		parseIPv6(buf, &pkt)
	default:
		// Non-IP ethertype: no L3, no stage matches, default PASS
		// (spec.md "boundary behaviour").
	}

	return pkt
}

func parseIPv4(buf []byte, pkt *Packet) {
	verIHL, ok := load8(buf, ethHLen)
	if !ok {
		pkt.Truncated = true
		return
	}
	ihl := int(verIHL&0x0F) * 4
	if ihl < ipv4MinHLen {
		pkt.Truncated = true
		return
	}

	proto, ok := load8(buf, ethHLen+9)
	if !ok {
		pkt.Truncated = true
		return
	}
	src, ok := load32(buf, ethHLen+12)
	if !ok {
		pkt.Truncated = true
		return
	}
	dst, ok := load32(buf, ethHLen+16)
	if !ok {
		pkt.Truncated = true
		return
	}

	pkt.Family = FamilyV4
	pkt.SrcIP4 = src
	pkt.DstIP4 = dst

	l4off := ethHLen + ihl
	parseL4(buf, pkt, l4off, proto)
}

func parseIPv6(buf []byte, pkt *Packet) {
	nextHdr, ok := load8(buf, ethHLen+6)
	if !ok {
		pkt.Truncated = true
		return
	}
	src, ok := loadN(buf, ethHLen+8, 16)
	if !ok {
		pkt.Truncated = true
		return
	}
	dst, ok := loadN(buf, ethHLen+24, 16)
	if !ok {
		pkt.Truncated = true
		return
	}

	pkt.Family = FamilyV6
	copy(pkt.SrcIP6[:], src)
	copy(pkt.DstIP6[:], dst)

	l4off := ethHLen + ipv6HLen
	parseL4(buf, pkt, l4off, nextHdr)
}

func parseL4(buf []byte, pkt *Packet, off int, proto uint8) {
	switch proto {
	case protoTCP:
		sport, ok := loadN(buf, off, 2)
		if !ok {
			pkt.Truncated = true
			return
		}
		dport, ok := loadN(buf, off+2, 2)
		if !ok {
			pkt.Truncated = true
			return
		}
		flags, ok := load8(buf, off+13)
		if !ok {
			pkt.Truncated = true
			return
		}
		pkt.Proto = protoTCP
		pkt.SrcPortWire = binary.LittleEndian.Uint16(sport)
		pkt.DstPortWire = binary.LittleEndian.Uint16(dport)
		copy(pkt.dstPortBytes[:], dport)
		pkt.TCPFlags = flags

	case protoUDP:
		sport, ok := loadN(buf, off, 2)
		if !ok {
			pkt.Truncated = true
			return
		}
		dport, ok := loadN(buf, off+2, 2)
		if !ok {
			pkt.Truncated = true
			return
		}
		pkt.Proto = protoUDP
		pkt.SrcPortWire = binary.LittleEndian.Uint16(sport)
		pkt.DstPortWire = binary.LittleEndian.Uint16(dport)
		copy(pkt.dstPortBytes[:], dport)

	case protoICMPv4:
		typ, ok := load8(buf, off)
		if !ok {
			pkt.Truncated = true
			return
		}
		code, ok := load8(buf, off+1)
		if !ok {
			pkt.Truncated = true
			return
		}
		pkt.Proto = protoICMPv4
		pkt.ICMPType = typ
		pkt.ICMPCode = code

	case protoICMPv6:
		typ, ok := load8(buf, off)
		if !ok {
			pkt.Truncated = true
			return
		}
		code, ok := load8(buf, off+1)
		if !ok {
			pkt.Truncated = true
			return
		}
		pkt.Proto = protoICMPv6
		pkt.ICMPType = typ
		pkt.ICMPCode = code

	default:
		// Unknown L4 protocol: no ports, no flags. The ACL gate drops
		// anything that isn't TCP/UDP/ICMP (spec.md §4.4).
	}
}
