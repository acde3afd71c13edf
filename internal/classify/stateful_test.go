// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTCPRateLimit_21stSYNWithinWindowDrops(t *testing.T) {
	tbl := NewTables()
	pkt := Packet{Family: FamilyV4, Proto: protoTCP, SrcIP4: 0x01020304, TCPFlags: tcpSYN}

	const start uint64 = 1_000_000_000
	for i := 1; i <= 20; i++ {
		v := classifyTCPRateLimit(&pkt, tbl, 0, start+uint64(i))
		require.Equal(t, PASS, v, "SYN #%d should pass", i)
	}
	v := classifyTCPRateLimit(&pkt, tbl, 0, start+21)
	require.Equal(t, DROP, v, "21st SYN within the window should drop")
}

func TestTCPRateLimit_NonSYNAlwaysPasses(t *testing.T) {
	tbl := NewTables()
	pkt := Packet{Family: FamilyV4, Proto: protoTCP, SrcIP4: 1, TCPFlags: tcpACK}
	for i := 0; i < 50; i++ {
		require.Equal(t, PASS, classifyTCPRateLimit(&pkt, tbl, 0, uint64(i)))
	}
}

func TestTCPRateLimit_SYNACKBypassesLimiter(t *testing.T) {
	tbl := NewTables()
	pkt := Packet{Family: FamilyV4, Proto: protoTCP, SrcIP4: 1, TCPFlags: tcpSYN | tcpACK}
	for i := 0; i < 50; i++ {
		require.Equal(t, PASS, classifyTCPRateLimit(&pkt, tbl, 0, uint64(i)))
	}
}

func TestTCPRateLimit_WindowResetAllowsFreshBurst(t *testing.T) {
	tbl := NewTables()
	pkt := Packet{Family: FamilyV4, Proto: protoTCP, SrcIP4: 2, TCPFlags: tcpSYN}

	for i := 1; i <= 20; i++ {
		require.Equal(t, PASS, classifyTCPRateLimit(&pkt, tbl, 0, uint64(i)))
	}
	require.Equal(t, DROP, classifyTCPRateLimit(&pkt, tbl, 0, 21))

	// A full window later, the counter resets.
	require.Equal(t, PASS, classifyTCPRateLimit(&pkt, tbl, 0, 21+rateWindowNS))
}

func TestUDPTokenBucket_SustainedAboveRateDrops(t *testing.T) {
	tbl := NewTables()
	tbl.SetConfig(Config{NS: 1000, Burst: 4})
	pkt := Packet{Family: FamilyV4, Proto: protoUDP, SrcIP4: 3}

	var now uint64 = 0
	var sawDrop bool
	for i := 0; i < 20; i++ {
		// One packet per nanosecond: far faster than one token per 1000ns.
		now++
		if classifyUDPTokenBucket(&pkt, tbl, 0, now) == DROP {
			sawDrop = true
		}
	}
	require.True(t, sawDrop, "a source sustained far above burst/ns must see some drops")
}

func TestUDPTokenBucket_BelowRateNeverDrops(t *testing.T) {
	tbl := NewTables()
	tbl.SetConfig(Config{NS: 1000, Burst: 4})
	pkt := Packet{Family: FamilyV4, Proto: protoUDP, SrcIP4: 4}

	var now uint64 = 0
	for i := 0; i < 20; i++ {
		// One packet every 2*ns: refill always keeps pace with drain.
		now += 2000
		require.Equal(t, PASS, classifyUDPTokenBucket(&pkt, tbl, 0, now))
	}
}

func TestUDPTokenBucket_TTLResetsToFullBucket(t *testing.T) {
	tbl := NewTables()
	tbl.SetConfig(Config{NS: 1000, Burst: 10})
	pkt := Packet{Family: FamilyV4, Proto: protoUDP, SrcIP4: 5}

	require.Equal(t, PASS, classifyUDPTokenBucket(&pkt, tbl, 0, 0))
	entry, ok := tbl.udpRL.shard(0).Lookup(rateKeyV4(5))
	require.True(t, ok)
	require.Equal(t, uint32(9), entry.tokens)

	// Idle for longer than TTL_NS: bucket resets to a full burst, then one
	// token is drawn for the packet that observes it.
	classifyUDPTokenBucket(&pkt, tbl, 0, ttlNS+1)
	entry, ok = tbl.udpRL.shard(0).Lookup(rateKeyV4(5))
	require.True(t, ok)
	require.Equal(t, uint32(9), entry.tokens)
}

func TestUDPTokenBucket_TokensOneThenDropNextPacket(t *testing.T) {
	tbl := NewTables()
	tbl.SetConfig(Config{NS: 1_000_000, Burst: 1})
	pkt := Packet{Family: FamilyV4, Proto: protoUDP, SrcIP4: 6}

	require.Equal(t, PASS, classifyUDPTokenBucket(&pkt, tbl, 0, 0))
	entry, _ := tbl.udpRL.shard(0).Lookup(rateKeyV4(6))
	require.Equal(t, uint32(0), entry.tokens)

	// Same source again, well within one refill interval: no tokens.
	require.Equal(t, DROP, classifyUDPTokenBucket(&pkt, tbl, 0, 10))
}
