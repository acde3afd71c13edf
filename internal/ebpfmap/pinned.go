// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ebpfmap provides an optional pinned-map backend for the
// classify package's bypass cache. spec.md §6 is explicit that every
// table is memory-resident except the inspector's bypass tables, which
// are "pinned by name so they survive program reloads". A *Store wraps a
// pinned *ebpf.Map when one is available and falls back to pure
// in-memory operation when it isn't, the same nil-map tolerance
// internal/ebpf/flow.Manager uses for its eBPF-backed flow table.
package ebpfmap

import (
	"fmt"

	"github.com/cilium/ebpf"

	"flowgate.dev/flowgate/internal/logging"
)

// Record is the on-disk shape of one bypass-cache slot: a 5-tuple plus a
// validity byte and an address family tag, mirroring
// classify.bypassV4/bypassV6 without importing the classify package
// (ebpfmap stays a leaf dependency of it, not the other way around). An
// IPv4 address occupies the low 4 bytes of SrcIP/DstIP with the rest
// zeroed, the same convention classify.WhitelistKey uses.
type Record struct {
	Valid   uint8
	Family  uint8 // classify.FamilyV4 (2, AF_INET) or classify.FamilyV6 (10, AF_INET6)
	_       [2]byte
	SrcIP   [16]byte
	DstIP   [16]byte
	SrcPort uint16
	DstPort uint16
	Proto   uint8
	_       [3]byte
}

// Store wraps a pinned eBPF array-of-structs map keyed by uint32 slot
// index. A nil underlying map makes every operation a no-op, so callers
// can construct a Store unconditionally and only pay for the pin when one
// is configured.
type Store struct {
	m      *ebpf.Map
	logger *logging.Logger
}

// OpenPinned loads a pinned map at path. A missing pin path is not an
// error at this layer — it simply yields a Store with no backing map,
// matching spec.md §7's "table write fails... pipeline ignores the
// failure" tolerance extended to "table doesn't exist yet at startup".
func OpenPinned(path string, logger *logging.Logger) *Store {
	if path == "" {
		return &Store{logger: logger}
	}
	m, err := ebpf.LoadPinnedMap(path, nil)
	if err != nil {
		logger.Warn("pinned bypass map unavailable, falling back to in-memory only",
			"path", path, "error", err)
		return &Store{logger: logger}
	}
	logger.Info("loaded pinned bypass map", "path", path)
	return &Store{m: m, logger: logger}
}

// Close releases the underlying map handle, if any.
func (s *Store) Close() error {
	if s.m == nil {
		return nil
	}
	return s.m.Close()
}

// Get reads the record stored at slot, if a pinned map is attached.
func (s *Store) Get(slot uint32) (Record, bool) {
	if s.m == nil {
		return Record{}, false
	}
	var rec Record
	if err := s.m.Lookup(&slot, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

// Put writes rec to slot. A write failure is logged and otherwise
// swallowed: the in-memory copy in classify.Tables remains authoritative
// for the running process either way (spec.md §7).
func (s *Store) Put(slot uint32, rec Record) {
	if s.m == nil {
		return
	}
	if err := s.m.Update(&slot, &rec, ebpf.UpdateAny); err != nil {
		s.logger.Warn("failed to persist bypass record", "slot", slot, "error", err)
	}
}

// Delete clears slot in the pinned map.
func (s *Store) Delete(slot uint32) {
	if s.m == nil {
		return
	}
	if err := s.m.Delete(&slot); err != nil && s.logger != nil {
		s.logger.Debug("bypass slot delete missed (already absent)", "slot", slot, "error", err)
	}
}

// Attached reports whether a pinned map is backing this Store.
func (s *Store) Attached() bool { return s.m != nil }

// ForEach iterates every slot in the pinned map, invoking fn with the slot
// index and its record. Used at startup to seed classify.Tables'
// in-memory bypass cache from whatever survived a program reload.
func (s *Store) ForEach(fn func(slot uint32, rec Record)) error {
	if s.m == nil {
		return nil
	}
	var slot uint32
	var rec Record
	it := s.m.Iterate()
	for it.Next(&slot, &rec) {
		fn(slot, rec)
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("iterate pinned bypass map: %w", err)
	}
	return nil
}
