// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrcache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrquery"
	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// LatestAtKey identifies a memoized latest_at lookup (spec §4.5:
// "per (entity, component, timeline, time)").
type LatestAtKey struct {
	Entity     rrpath.Path
	Component  rrcomponent.Descriptor
	Timeline   rrtime.Timeline
	At         rrtime.TimeInt
}

func (k LatestAtKey) cacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.Entity.String(), k.Component.Key(), k.Timeline.Name(), int64(k.At))
}

// entrySlot holds an atomic pointer so readers can take a consistent
// snapshot reference while a concurrent invalidation swaps in a new
// value — or nil — without blocking (spec §4.5: "reader obtains a
// snapshot reference; invalidation replaces the entry, old snapshots
// remain valid until dropped").
type entrySlot struct {
	value atomic.Pointer[rrquery.Observation]
}

// LatestAtCache is an LRU memoizing recent latest_at results, grounded
// on the donor's doubly-linked-list LRU (internal/cache/lru.go) adapted
// to generic (entity,component,timeline,time) keys and atomic-pointer
// entries for invalidation-safe concurrent reads.
type LatestAtCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*lruNode
	// head.next is the most recently used entry, tail.prev is the least
	// recently used, mirroring the donor's sentinel-node LRU shape.
	head, tail *lruNode
}

// lruNode is a minimal intrusive doubly-linked list node used for LRU
// ordering, mirroring the donor's LRUEntry shape.
type lruNode struct {
	key        string
	slot       *entrySlot
	prev, next *lruNode
}

// NewLatestAtCache creates an LRU with room for capacity entries.
func NewLatestAtCache(capacity int) *LatestAtCache {
	if capacity <= 0 {
		capacity = 4096
	}
	head := &lruNode{}
	tail := &lruNode{}
	head.next = tail
	tail.prev = head
	return &LatestAtCache{capacity: capacity, entries: make(map[string]*lruNode), head: head, tail: tail}
}

// Attach subscribes the cache to invalidation events: any event
// touching an (entity, component) pair drops every cached entry for
// that pair, on every timeline and at every time (coarse invalidation,
// per the resolved Open Question in SPEC_FULL.md §9/DESIGN.md).
func (c *LatestAtCache) Attach(store *rrstore.ChunkStore) rrstore.SubscriberHandle {
	return store.Subscribe(c.handle)
}

func (c *LatestAtCache) handle(ev rrstore.ChunkStoreEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, node := range c.entries {
		for _, desc := range ev.Components {
			if matchesEntityAndComponent(key, ev.EntityPath.String(), desc.Key()) {
				node.slot.value.Store(nil)
				c.unlinkAndDelete(key, node)
				break
			}
		}
	}
}

func matchesEntityAndComponent(cacheKey, entity, componentKey string) bool {
	prefix := entity + "|" + componentKey + "|"
	return len(cacheKey) >= len(prefix) && cacheKey[:len(prefix)] == prefix
}

// Get returns a cached observation for key, if present and not since
// invalidated.
func (c *LatestAtCache) Get(key LatestAtKey) (rrquery.Observation, bool) {
	ck := key.cacheKey()

	c.mu.Lock()
	node, ok := c.entries[ck]
	if ok {
		c.moveToFront(node)
	}
	c.mu.Unlock()

	if !ok {
		return rrquery.Observation{}, false
	}
	v := node.slot.value.Load()
	if v == nil {
		return rrquery.Observation{}, false
	}
	return *v, true
}

// Put stores obs for key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *LatestAtCache) Put(key LatestAtKey, obs rrquery.Observation) {
	ck := key.cacheKey()

	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.entries[ck]; ok {
		node.slot.value.Store(&obs)
		c.moveToFront(node)
		return
	}

	slot := &entrySlot{}
	slot.value.Store(&obs)
	node := &lruNode{key: ck, slot: slot}
	c.entries[ck] = node
	c.pushFront(node)

	if len(c.entries) > c.capacity {
		c.evictLRU()
	}
}

func (c *LatestAtCache) pushFront(n *lruNode) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

func (c *LatestAtCache) unlink(n *lruNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LatestAtCache) moveToFront(n *lruNode) {
	c.unlink(n)
	c.pushFront(n)
}

func (c *LatestAtCache) unlinkAndDelete(key string, n *lruNode) {
	c.unlink(n)
	delete(c.entries, key)
}

func (c *LatestAtCache) evictLRU() {
	lru := c.tail.prev
	if lru == c.head {
		return
	}
	c.unlinkAndDelete(lru.key, lru)
}
