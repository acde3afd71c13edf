// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package classify

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// lruTable is a bounded, LRU-evicted table. It backs every data-plane
// table in spec.md §3 whose eviction policy is "LRU": tcp_flow, udp_flow,
// tcp6_flow, udp6_flow, tcp_rate, and udp_rl. groupcache/lru.Cache gives
// the bounded-capacity/oldest-eviction semantics directly; it isn't safe
// for concurrent use on its own; the mutex here gives the table the same
// per-table atomicity spec.md §5 ascribes to "the underlying runtime's
// bucket locking" for shared LRU maps.
type lruTable[K comparable, V any] struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newLRUTable[K comparable, V any](capacity int) *lruTable[K, V] {
	return &lruTable[K, V]{cache: lru.New(capacity)}
}

// Lookup returns the value stored for key, or the zero value and false on
// a miss. A write-side failure (the table couldn't evict, or is full) is
// not possible here: groupcache/lru always evicts its oldest entry before
// an insert would exceed capacity, matching spec.md §7's "table write
// fails" being a non-event we don't need to retry.
func (t *lruTable[K, V]) Lookup(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.cache.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Upsert inserts or overwrites the entry for key.
func (t *lruTable[K, V]) Upsert(key K, val V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Add(key, val)
}

// Delete removes the entry for key, if present. Deleting an absent key is
// a no-op, matching spec.md §7's "table read returns absent is a normal
// miss, not an error" for the symmetric write-side case.
func (t *lruTable[K, V]) Delete(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Remove(key)
}

func (t *lruTable[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}
