// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

import "flowgate.dev/flowgate/internal/ebpfmap"

// AttachBypassStore wires a pinned bypass-cache backend into t: every
// subsequent PublishBypassV4/V6 and blacklist-triggered eviction also
// writes through to store, and any records that survived a prior program
// reload are loaded into the in-memory cache immediately (spec.md §6,
// "pinned by name so they survive program reloads"). Call this once at
// startup, before the pipeline starts serving packets; t.bypassStore is
// not synchronized against concurrent PublishBypass calls.
func (t *Tables) AttachBypassStore(store *ebpfmap.Store) error {
	t.bypassStore = store
	return store.ForEach(func(slot uint32, rec ebpfmap.Record) {
		if rec.Valid == 0 {
			return
		}
		switch rec.Family {
		case FamilyV4:
			key := FlowKey4{
				SrcIP: ipv4FromRecordBytes(rec.SrcIP), DstIP: ipv4FromRecordBytes(rec.DstIP),
				SrcPort: rec.SrcPort, DstPort: rec.DstPort, Proto: rec.Proto,
			}
			t.flowTableV4[slot%flowTabSize].Store(&bypassV4{valid: true, key: key})
		case FamilyV6:
			key := FlowKey6{
				SrcIP: rec.SrcIP, DstIP: rec.DstIP,
				SrcPort: rec.SrcPort, DstPort: rec.DstPort, Proto: rec.Proto,
			}
			t.flowTableV6[slot%flowTabSize].Store(&bypassV6{valid: true, key: key})
		}
	})
}

// recordV4/recordV6 build the pinned-map record for a bypass-cache write,
// the inverse of ipv4FromRecordBytes (below) and of the V6 passthrough in
// AttachBypassStore (above).
func recordV4(key FlowKey4) ebpfmap.Record {
	return ebpfmap.Record{
		Valid: 1, Family: FamilyV4,
		SrcIP: recordBytesFromIPv4(key.SrcIP), DstIP: recordBytesFromIPv4(key.DstIP),
		SrcPort: key.SrcPort, DstPort: key.DstPort, Proto: key.Proto,
	}
}

func recordV6(key FlowKey6) ebpfmap.Record {
	return ebpfmap.Record{
		Valid: 1, Family: FamilyV6,
		SrcIP: key.SrcIP, DstIP: key.DstIP,
		SrcPort: key.SrcPort, DstPort: key.DstPort, Proto: key.Proto,
	}
}

func ipv4FromRecordBytes(b [16]byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func recordBytesFromIPv4(addr uint32) [16]byte {
	var b [16]byte
	b[0] = byte(addr >> 24)
	b[1] = byte(addr >> 16)
	b[2] = byte(addr >> 8)
	b[3] = byte(addr)
	return b
}
