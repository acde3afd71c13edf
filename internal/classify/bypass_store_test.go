// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flowgate.dev/flowgate/internal/ebpfmap"
	"flowgate.dev/flowgate/internal/logging"
)

func TestAttachBypassStore_UnattachedStoreSeedsNothing(t *testing.T) {
	tbl := NewTables()
	store := ebpfmap.OpenPinned("", logging.New(logging.DefaultConfig()))

	require.NoError(t, tbl.AttachBypassStore(store))

	key := FlowKey4{SrcIP: 1, DstIP: 2, SrcPort: 3, DstPort: 4, Proto: protoTCP}
	require.False(t, bypassHitV4(tbl, key))
}

func TestAttachBypassStore_PublishAndDeleteWriteThroughWithoutError(t *testing.T) {
	tbl := NewTables()
	store := ebpfmap.OpenPinned("", logging.New(logging.DefaultConfig()))
	require.NoError(t, tbl.AttachBypassStore(store))

	key := FlowKey4{SrcIP: 0x0A000001, DstIP: 2, SrcPort: 1, DstPort: 2, Proto: protoTCP}
	tbl.PublishBypassV4(key)
	require.True(t, bypassHitV4(tbl, key))

	pkt := &Packet{Family: FamilyV4, Proto: protoTCP, SrcIP4: 0x0A000001, DstIP4: 2, SrcPortWire: 1, DstPortWire: 2}
	require.Equal(t, DROP, classifyBlacklist(pkt, tbl.snapshot(), tbl))
	require.False(t, bypassHitV4(tbl, key), "blacklist hit must evict the bypass record even with a store attached")
}

func TestRecordV4V6_RoundTripThroughIPBytes(t *testing.T) {
	k4 := FlowKey4{SrcIP: 0x0A000001, DstIP: 0x08080808, SrcPort: 80, DstPort: 443, Proto: protoTCP}
	rec4 := recordV4(k4)
	require.Equal(t, uint32(0x0A000001), ipv4FromRecordBytes(rec4.SrcIP))
	require.Equal(t, uint32(0x08080808), ipv4FromRecordBytes(rec4.DstIP))

	k6 := FlowKey6{SrcIP: [16]byte{0x20, 0x01}, DstIP: [16]byte{0xfe, 0x80}, SrcPort: 80, DstPort: 443, Proto: protoUDP}
	rec6 := recordV6(k6)
	require.Equal(t, k6.SrcIP, rec6.SrcIP)
	require.Equal(t, k6.DstIP, rec6.DstIP)
}
