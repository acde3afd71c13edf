// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

// classifyStateful dispatches to the TCP SYN rate limiter or the UDP
// token bucket depending on pkt.Proto (spec.md §4.8). It is reached from
// both the fast path (fresh hit) and the slow path, exactly as spec.md §2
// step 7 requires.
func classifyStateful(pkt *Packet, t *Tables, shard ShardID, now uint64) Verdict {
	if pkt.IsTCP() {
		return classifyTCPRateLimit(pkt, t, shard, now)
	}
	if pkt.IsUDP() {
		return classifyUDPTokenBucket(pkt, t, shard, now)
	}
	return PASS
}

func rateKeyFor(pkt *Packet) RateKey {
	if pkt.Family == FamilyV6 {
		return rateKeyV6(pkt.SrcIP6)
	}
	return rateKeyV4(pkt.SrcIP4)
}

// classifyTCPRateLimit implements spec.md §4.8's SYN rate limiter. Only
// an initial SYN (SYN=1, ACK=0) is rate-limited; handshake completion and
// all other TCP traffic pass through unconditionally.
func classifyTCPRateLimit(pkt *Packet, t *Tables, shard ShardID, now uint64) Verdict {
	isInitialSYN := pkt.TCPFlags&tcpSYN != 0 && pkt.TCPFlags&tcpACK == 0
	if !isInitialSYN {
		return PASS
	}

	key := rateKeyFor(pkt)
	table := t.tcpRate.shard(shard)

	entry, ok := table.Lookup(key)
	if !ok {
		entry = tcpRateEntry{windowStart: now}
	}
	if now-entry.windowStart >= rateWindowNS {
		entry.windowStart = now
		entry.synCount = 0
	}
	entry.synCount++

	verdict := PASS
	if entry.synCount > synRateLimit || entry.synCount > synBurstLimit {
		verdict = DROP
	}

	table.Upsert(key, entry)
	return verdict
}

// classifyUDPTokenBucket implements spec.md §4.8's per-source token
// bucket.
func classifyUDPTokenBucket(pkt *Packet, t *Tables, shard ShardID, now uint64) Verdict {
	cfg := t.snapshot().cfg.Effective()
	key := rateKeyFor(pkt)
	table := t.udpRL.shard(shard)

	entry, ok := table.Lookup(key)
	if !ok {
		entry = udpRLEntry{lastSeen: now, tokens: cfg.Burst}
	}

	idle := now - entry.lastSeen
	if idle >= ttlNS {
		entry.tokens = cfg.Burst
	} else {
		refill := idle / cfg.NS
		if refill > 0 {
			entry.tokens += uint32(refill)
			if entry.tokens > cfg.Burst {
				entry.tokens = cfg.Burst
			}
		}
	}

	var verdict Verdict
	if entry.tokens == 0 {
		verdict = DROP
	} else {
		verdict = PASS
		entry.tokens--
	}

	entry.lastSeen = now
	table.Upsert(key, entry)
	return verdict
}
