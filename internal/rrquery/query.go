// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrquery implements the query engine (spec §4.4): LatestAt and
// Range queries over a rrstore.ChunkStore, returning zero-copy chunk
// references materialized lazily per component.
package rrquery

import (
	"sort"

	"github.com/tomtom215/rrdstore/internal/rrchunk"
	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// LatestAtQuery names a point-in-time lookup on a single timeline.
type LatestAtQuery struct {
	Timeline rrtime.Timeline
	At       rrtime.TimeInt
}

// RangeQuery names an inclusive time window on a single timeline.
type RangeQuery struct {
	Timeline rrtime.Timeline
	Range    rrtime.TimeRange
}

// Observation is one materialized component value at a specific row.
type Observation struct {
	RowID  rrtime.RowID
	Time   rrtime.TimeInt
	Values []any
}

// latestAtEntry is the lazy, zero-copy reference LatestAtResults holds
// per requested component before materialization.
type latestAtEntry struct {
	chunk *rrchunk.Chunk
	row   int
	time  rrtime.TimeInt
}

// LatestAtResults holds, for each requested component, at most one
// reference to the winning row (spec §4.4). Materialization is lazy.
type LatestAtResults struct {
	EntityPath rrpath.Path
	Query      LatestAtQuery
	entries    map[string]latestAtEntry
}

// Component materializes the component's values at the winning row, if
// any was found.
func (r *LatestAtResults) Component(desc rrcomponent.Descriptor) (Observation, bool) {
	e, ok := r.entries[desc.Key()]
	if !ok {
		return Observation{}, false
	}
	vals, ok := e.chunk.ComponentValues(desc, e.row)
	if !ok {
		return Observation{}, false
	}
	return Observation{RowID: e.chunk.RowID(e.row), Time: e.time, Values: vals}, true
}

// LatestAt implements spec §4.4's latest_at algorithm: for each
// requested component, the value present at the greatest (time, row_id)
// position <= query.At on query.Timeline, falling back to the static
// winner only when no temporal value exists at or before query.At
// (the resolved Open Question #2: "temporal wins if its time is
// concrete and <= query; static only fills the absence gap").
func LatestAt(store *rrstore.ChunkStore, query LatestAtQuery, entity rrpath.Path, components []rrcomponent.Descriptor) *LatestAtResults {
	res := &LatestAtResults{EntityPath: entity, Query: query, entries: make(map[string]latestAtEntry, len(components))}
	if len(components) == 0 {
		return res
	}

	candidates := store.TemporalChunksAtOrBefore(entity, query.Timeline, query.At)
	clearTime, hasClear := store.ClearTimeAtOrBefore(entity, query.Timeline, query.At)

	for _, desc := range components {
		var best latestAtEntry
		found := false

		for _, c := range candidates {
			row, t, ok := latestRowInChunk(c, query.Timeline, query.At, desc)
			if !ok {
				continue
			}
			if !found || t.Compare(best.time) > 0 ||
				(t.Compare(best.time) == 0 && c.RowID(row).Compare(best.chunk.RowID(best.row)) > 0) {
				best = latestAtEntry{chunk: c, row: row, time: t}
				found = true
			}
		}

		if hasClear && (!found || best.time.Compare(clearTime) < 0) {
			// A clear logged on this entity, or a recursive clear logged
			// on an ancestor, masks every value
			// (temporal or static) that predates it, until a subsequent
			// non-null write reintroduces the component (spec §4.3).
			continue
		}

		if found {
			res.entries[desc.Key()] = best
			continue
		}

		// No temporal value at/before query.At: fall back to the static
		// winner, if any.
		if staticChunk, ok := store.StaticWinner(entity, desc); ok {
			if row, ok := lastNonNullRow(staticChunk, desc); ok {
				res.entries[desc.Key()] = latestAtEntry{chunk: staticChunk, row: row, time: rrtime.TimeIntStatic}
			}
		}
	}

	return res
}

// latestRowInChunk finds the greatest (time, row_id) position in c with
// time <= at and a non-null desc cell, per spec §4.4 step 2: "binary
// search if the chunk is sorted by time, linear otherwise."
func latestRowInChunk(c *rrchunk.Chunk, tl rrtime.Timeline, at rrtime.TimeInt, desc rrcomponent.Descriptor) (int, rrtime.TimeInt, bool) {
	n := c.RowCount()
	if n == 0 {
		return 0, 0, false
	}

	if c.IsSortedByTime(tl) {
		lo, hi := 0, n
		for lo < hi {
			mid := (lo + hi) / 2
			t, _ := c.TimeAt(tl, mid)
			if t.Compare(at) <= 0 {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		for i := lo - 1; i >= 0; i-- {
			if c.ComponentIsNullAt(desc, i) {
				continue
			}
			t, _ := c.TimeAt(tl, i)
			return i, t, true
		}
		return 0, 0, false
	}

	bestIdx := -1
	var bestTime rrtime.TimeInt
	for i := 0; i < n; i++ {
		t, _ := c.TimeAt(tl, i)
		if t.Compare(at) > 0 || c.ComponentIsNullAt(desc, i) {
			continue
		}
		if bestIdx == -1 || t.Compare(bestTime) > 0 ||
			(t.Compare(bestTime) == 0 && c.RowID(i).Compare(c.RowID(bestIdx)) > 0) {
			bestIdx, bestTime = i, t
		}
	}
	if bestIdx == -1 {
		return 0, 0, false
	}
	return bestIdx, bestTime, true
}

// lastNonNullRow returns the greatest-row-id row of c (a static chunk,
// sorted by row id ascending) with a non-null desc cell.
func lastNonNullRow(c *rrchunk.Chunk, desc rrcomponent.Descriptor) (int, bool) {
	for i := c.RowCount() - 1; i >= 0; i-- {
		if !c.ComponentIsNullAt(desc, i) {
			return i, true
		}
	}
	return 0, false
}

// RangeResults holds the complete ordered sequence of observations per
// component within the query window (spec §4.4).
type RangeResults struct {
	EntityPath rrpath.Path
	Query      RangeQuery
	observed   map[string][]Observation
}

// Component returns the materialized, time-ascending observation
// sequence for desc, with any static value (if present) first.
func (r *RangeResults) Component(desc rrcomponent.Descriptor) []Observation {
	return r.observed[desc.Key()]
}

// Range implements spec §4.4's range algorithm: the complete ordered
// sequence of component observations within [start, end], deduplicated
// by (time, row_id) and sorted ascending, with any static value emitted
// once at STATIC preceding the temporal stream.
func Range(store *rrstore.ChunkStore, query RangeQuery, entity rrpath.Path, components []rrcomponent.Descriptor) *RangeResults {
	res := &RangeResults{EntityPath: entity, Query: query, observed: make(map[string][]Observation, len(components))}
	if len(components) == 0 {
		return res
	}

	candidates := store.TemporalChunksInRange(entity, query.Timeline, query.Range)
	_, hasRangeEndClear := store.ClearTimeAtOrBefore(entity, query.Timeline, query.Range.Max)

	for _, desc := range components {
		seen := make(map[rrtime.RowID]struct{})
		var obs []Observation

		// A clear masks the static winner the same way it masks a stale
		// temporal value in LatestAt (spec §4.3): STATIC orders before
		// every concrete time, so any clear at or before the range's end
		// shadows it.
		if !hasRangeEndClear {
			if staticChunk, ok := store.StaticWinner(entity, desc); ok {
				if row, ok := lastNonNullRow(staticChunk, desc); ok {
					if vals, ok := staticChunk.ComponentValues(desc, row); ok {
						obs = append(obs, Observation{RowID: staticChunk.RowID(row), Time: rrtime.TimeIntStatic, Values: vals})
					}
				}
			}
		}

		var temporal []Observation
		for _, c := range candidates {
			for i := 0; i < c.RowCount(); i++ {
				if c.ComponentIsNullAt(desc, i) {
					continue
				}
				t, ok := c.TimeAt(query.Timeline, i)
				if !ok || !query.Range.Contains(t) {
					continue
				}
				rid := c.RowID(i)
				if _, dup := seen[rid]; dup {
					continue
				}
				seen[rid] = struct{}{}
				vals, ok := c.ComponentValues(desc, i)
				if !ok {
					continue
				}
				temporal = append(temporal, Observation{RowID: rid, Time: t, Values: vals})
			}
		}
		sort.Slice(temporal, func(i, j int) bool {
			if cmp := temporal[i].Time.Compare(temporal[j].Time); cmp != 0 {
				return cmp < 0
			}
			return temporal[i].RowID.Compare(temporal[j].RowID) < 0
		})

		obs = append(obs, temporal...)
		res.observed[desc.Key()] = obs
	}

	return res
}
