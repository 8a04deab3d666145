// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrcache implements the core derived-index caches (spec §4.5):
// TimesPerTimeline, EntityTree, and an optional LatestAt query cache, all
// kept live as subscribers of a rrstore.ChunkStore's change-event bus.
package rrcache

import (
	"sync"

	"github.com/google/btree"

	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

const timesPerTimelineDegree = 32

// timeCount is one key of a per-timeline `BTreeMap<TimeInt, count>`
// (spec §4.5: "timeline → BTreeMap<TimeInt, count>").
type timeCount struct {
	time  rrtime.TimeInt
	count int
}

func timeCountLess(a, b timeCount) bool { return a.time.Compare(b.time) < 0 }

// TimesPerTimeline tracks, per timeline, how many live rows touch each
// distinct TimeInt (a row is counted once for each component it
// carries), ordered by time so callers can walk a timeline's
// occupied instants in order (spec §4.5). Seeded with
// rrtime.LogTimeTimeline at construction so it always exists.
type TimesPerTimeline struct {
	mu    sync.RWMutex
	trees map[string]*btree.BTreeG[timeCount]
}

// NewTimesPerTimeline creates a cache seeded with the log_time timeline.
func NewTimesPerTimeline() *TimesPerTimeline {
	c := &TimesPerTimeline{trees: make(map[string]*btree.BTreeG[timeCount])}
	c.trees[rrtime.LogTimeTimeline.Name()] = btree.NewG(timesPerTimelineDegree, timeCountLess)
	return c
}

// Attach subscribes the cache to store's change-event bus. Per spec
// §4.5's construction contract, this must happen before the store's
// first insert that the cache needs to observe.
func (c *TimesPerTimeline) Attach(store *rrstore.ChunkStore) rrstore.SubscriberHandle {
	return store.Subscribe(c.handle)
}

func (c *TimesPerTimeline) handle(ev rrstore.ChunkStoreEvent) {
	if len(ev.Times) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for timeline, times := range ev.Times {
		tree, ok := c.trees[timeline]
		if !ok {
			tree = btree.NewG(timesPerTimelineDegree, timeCountLess)
			c.trees[timeline] = tree
		}
		for _, t := range times {
			cur, _ := tree.Get(timeCount{time: t})
			cur.time = t
			cur.count += ev.Delta
			if cur.count <= 0 {
				tree.Delete(timeCount{time: t})
				continue
			}
			tree.ReplaceOrInsert(cur)
		}
	}
}

// Count returns the number of live rows at time t on timeline.
func (c *TimesPerTimeline) Count(timeline string, t rrtime.TimeInt) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tree, ok := c.trees[timeline]
	if !ok {
		return 0
	}
	tc, _ := tree.Get(timeCount{time: t})
	return tc.count
}

// Times returns every distinct time with a positive count on timeline,
// in ascending order.
func (c *TimesPerTimeline) Times(timeline string) []rrtime.TimeInt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tree, ok := c.trees[timeline]
	if !ok {
		return nil
	}
	out := make([]rrtime.TimeInt, 0, tree.Len())
	tree.Ascend(func(tc timeCount) bool {
		out = append(out, tc.time)
		return true
	})
	return out
}

// Timelines returns every timeline the cache has seen, including the
// seeded log_time timeline.
func (c *TimesPerTimeline) Timelines() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.trees))
	for name := range c.trees {
		out = append(out, name)
	}
	return out
}
