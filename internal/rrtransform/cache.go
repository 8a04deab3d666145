// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrtransform

import (
	"fmt"
	"sync"

	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// walkKey identifies one memoized resolution (spec.md §4.7: "the
// resolver's own walk cache ((root, entity, timeline, time) ->
// resolved)").
type walkKey struct {
	root     string
	entity   string
	timeline string
	at       rrtime.TimeInt
}

func (k walkKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.root, k.entity, k.timeline, int64(k.at))
}

type walkNode struct {
	key        string
	entity     rrpath.Path
	result     *Resolved
	prev, next *walkNode
}

// TransformCache is the per-store transform resolver plus its walk
// cache, grounded on the same sentinel-node LRU base as
// internal/rrcache's LatestAtCache (spec.md §4.7: "implemented as a
// second internal/rrcache-style LRU"), invalidated whenever a store
// event carrying a transform-relevant component (one with a non-zero
// TransformAspect) touches an entity that is an ancestor of (or equal
// to) a cached resolution's entity — any such change can alter the
// composed transform. Events carrying only other components are ignored.
type TransformCache struct {
	store   *rrstore.ChunkStore
	aspects *AspectTracker

	mu         sync.Mutex
	capacity   int
	entries    map[string]*walkNode
	head, tail *walkNode
}

// NewTransformCache creates a walk cache over store with room for
// capacity memoized resolutions.
func NewTransformCache(store *rrstore.ChunkStore, capacity int) *TransformCache {
	if capacity <= 0 {
		capacity = 4096
	}
	head, tail := &walkNode{}, &walkNode{}
	head.next = tail
	tail.prev = head
	c := &TransformCache{
		store:    store,
		aspects:  NewAspectTracker(),
		capacity: capacity,
		entries:  make(map[string]*walkNode),
		head:     head,
		tail:     tail,
	}
	c.aspects.Attach(store)
	store.Subscribe(c.handle)
	return c
}

func (c *TransformCache) handle(ev rrstore.ChunkStoreEvent) {
	var relevant TransformAspect
	for _, desc := range ev.Components {
		relevant |= aspectFor(desc)
	}
	if relevant == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, node := range c.entries {
		if ev.EntityPath.IsSelfOrAncestorOf(node.entity) {
			c.unlinkAndDelete(key, node)
		}
	}
}

// Resolve returns the memoized resolution for (entity, timeline, at),
// computing and caching it on a miss. root is part of the cache key
// only: the resolution always composes the full chain from the path
// root (/) down to entity.
func (c *TransformCache) Resolve(root, entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt, opts ResolveOptions) *Resolved {
	key := walkKey{root: root.String(), entity: entity.String(), timeline: timeline.Name(), at: at}.String()

	c.mu.Lock()
	if node, ok := c.entries[key]; ok {
		c.moveToFront(node)
		res := node.result
		c.mu.Unlock()
		return res
	}
	c.mu.Unlock()

	res := Resolve(c.store, entity, timeline, at, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	node := &walkNode{key: key, entity: entity, result: res}
	c.entries[key] = node
	c.pushFront(node)
	if len(c.entries) > c.capacity {
		c.evictLRU()
	}
	return res
}

func (c *TransformCache) pushFront(n *walkNode) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

func (c *TransformCache) unlink(n *walkNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *TransformCache) moveToFront(n *walkNode) {
	c.unlink(n)
	c.pushFront(n)
}

func (c *TransformCache) unlinkAndDelete(key string, n *walkNode) {
	c.unlink(n)
	delete(c.entries, key)
}

func (c *TransformCache) evictLRU() {
	lru := c.tail.prev
	if lru == c.head {
		return
	}
	c.unlinkAndDelete(lru.key, lru)
}
