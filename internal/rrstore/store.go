// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrstore implements the chunk store (spec §4.3): a per-recording
// catalog of chunks keyed by entity path, with a temporal index per
// (entity, timeline), a static-winner index per (entity, component), and
// a synchronous change-event bus that caches and the transform resolver
// subscribe to.
package rrstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rrdstore/internal/rrchunk"
	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrlog"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

const btreeDegree = 32

// timeEntry is one key in a per-(entity,timeline) BTreeMap<TimeInt,
// set<ChunkId>> (spec §3).
type timeEntry struct {
	time     rrtime.TimeInt
	chunkIDs map[rrtime.ChunkID]struct{}
}

func timeEntryLess(a, b timeEntry) bool { return a.time.Compare(b.time) < 0 }

// timelineBucket is the per-(entity,timeline) temporal index, each
// guarded by its own RWMutex (spec §5: "one sync.RWMutex per
// (entity,timeline) bucket").
type timelineBucket struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[timeEntry]
}

func newTimelineBucket() *timelineBucket {
	return &timelineBucket{tree: btree.NewG(btreeDegree, timeEntryLess)}
}

// clearEntry is one key in a per-(entity,timeline) BTreeMap<TimeInt,
// recursive> of logged Clear markers (spec §4.3 tie-breaking rules,
// last bullet: "a component-level clear on an entity path with the
// recursive flag set erases all values of that component on all
// descendants for times >= the clear's time ... until a subsequent
// non-null value ... reintroduces it").
type clearEntry struct {
	time      rrtime.TimeInt
	recursive bool
}

func clearEntryLess(a, b clearEntry) bool { return a.time.Compare(b.time) < 0 }

// clearBucket is the per-(entity,timeline) clear-marker index, mirroring
// timelineBucket's locking shape.
type clearBucket struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[clearEntry]
}

func newClearBucket() *clearBucket {
	return &clearBucket{tree: btree.NewG(btreeDegree, clearEntryLess)}
}

// Stats reports the store's cumulative byte-size statistics (spec §4.3
// step 5, consumed by §4.6 GC and exposed as rrmetrics gauges).
type Stats struct {
	StaticBytes   int64
	TemporalBytes int64
}

// ChunkStore is a process-wide, per-recording collection of chunks with
// their secondary indices and change-event bus (spec §3, §4.3).
type ChunkStore struct {
	recordingID uuid.UUID

	// coarse guards chunks/minRowIndex/staticIndex/buckets map structure.
	// Bucket *contents* (the per-timeline btree) are guarded by the
	// bucket's own mu once the pointer has been read (spec §5).
	coarse sync.RWMutex

	chunks      map[rrtime.ChunkID]*rrchunk.Chunk
	minRowIndex map[rrtime.RowID]rrtime.ChunkID

	// entity path string -> timeline name -> bucket
	buckets map[string]map[string]*timelineBucket

	// entity path string -> timeline name -> clear markers logged at
	// that entity (spec §4.3 "clear" tie-breaking rule).
	clearMarkers map[string]map[string]*clearBucket

	// entity path string -> component key -> winning chunk id
	staticIndex map[string]map[string]rrtime.ChunkID

	bus *eventBus

	// ingestBreaker, when non-nil, wraps InsertChunkFromIngest so a burst
	// of malformed chunks from an external producer trips the breaker
	// instead of walking the full insertion path on every retry.
	ingestBreaker *gobreaker.CircuitBreaker[[]ChunkStoreEvent]

	insertID uint64
	gcID     uint64

	stats Stats
}

// New creates an empty chunk store for recordingID. Caches that must
// observe full history must Subscribe before the first InsertChunk call
// (spec §4.5 "cache construction contract").
func New(recordingID uuid.UUID) *ChunkStore {
	return &ChunkStore{
		recordingID:  recordingID,
		chunks:       make(map[rrtime.ChunkID]*rrchunk.Chunk),
		minRowIndex:  make(map[rrtime.RowID]rrtime.ChunkID),
		buckets:      make(map[string]map[string]*timelineBucket),
		clearMarkers: make(map[string]map[string]*clearBucket),
		staticIndex:  make(map[string]map[string]rrtime.ChunkID),
		bus:          newEventBus(),
	}
}

// RecordingID returns the store's recording identifier.
func (s *ChunkStore) RecordingID() uuid.UUID { return s.recordingID }

// Subscribe registers fn to receive every future ChunkStoreEvent.
func (s *ChunkStore) Subscribe(fn SubscriberFunc) SubscriberHandle { return s.bus.subscribe(fn) }

// Unsubscribe removes a previously registered subscriber.
func (s *ChunkStore) Unsubscribe(h SubscriberHandle) { s.bus.unsubscribe(h) }

// EventID returns the most recently assigned event id.
func (s *ChunkStore) EventID() uint64 { return s.bus.currentEventID() }

// Stats returns a snapshot of the store's cumulative byte-size statistics.
func (s *ChunkStore) Stats() Stats {
	s.coarse.RLock()
	defer s.coarse.RUnlock()
	return s.stats
}

func (s *ChunkStore) getOrCreateBucket(entity, timeline string) *timelineBucket {
	s.coarse.Lock()
	defer s.coarse.Unlock()
	tls, ok := s.buckets[entity]
	if !ok {
		tls = make(map[string]*timelineBucket)
		s.buckets[entity] = tls
	}
	b, ok := tls[timeline]
	if !ok {
		b = newTimelineBucket()
		tls[timeline] = b
	}
	return b
}

func (s *ChunkStore) getBucket(entity, timeline string) (*timelineBucket, bool) {
	s.coarse.RLock()
	defer s.coarse.RUnlock()
	tls, ok := s.buckets[entity]
	if !ok {
		return nil, false
	}
	b, ok := tls[timeline]
	return b, ok
}

func (s *ChunkStore) getOrCreateClearBucket(entity, timeline string) *clearBucket {
	s.coarse.Lock()
	defer s.coarse.Unlock()
	tls, ok := s.clearMarkers[entity]
	if !ok {
		tls = make(map[string]*clearBucket)
		s.clearMarkers[entity] = tls
	}
	b, ok := tls[timeline]
	if !ok {
		b = newClearBucket()
		tls[timeline] = b
	}
	return b
}

func (s *ChunkStore) getClearBucket(entity, timeline string) (*clearBucket, bool) {
	s.coarse.RLock()
	defer s.coarse.RUnlock()
	tls, ok := s.clearMarkers[entity]
	if !ok {
		return nil, false
	}
	b, ok := tls[timeline]
	return b, ok
}

// InsertChunk merges chunk into all indices and emits one
// ChunkStoreEvent per distinct (entity, component, timeline) it
// touches, per the insertion algorithm of spec §4.3.
func (s *ChunkStore) InsertChunk(chunk *rrchunk.Chunk) ([]ChunkStoreEvent, error) {
	// Step 1: normalize.
	chunk, err := chunk.Normalize()
	if err != nil {
		return nil, fmt.Errorf("normalize chunk: %w", err)
	}
	if err := chunk.Validate(); err != nil {
		rrlog.Warn().Err(err).Str("entity_path", chunk.EntityPath().String()).Msg("dropped malformed chunk")
		return nil, err
	}

	entity := chunk.EntityPath().String()
	isStatic := chunk.IsStatic() // Step 2.

	var events []ChunkStoreEvent

	// Step 3.
	for _, desc := range chunk.Components() {
		if isStatic {
			ev, ok := s.applyStaticWinner(entity, chunk.EntityPath(), desc, chunk)
			if ok {
				events = append(events, ev...)
			}
			continue
		}
		touched := s.indexTemporalComponent(entity, chunk, desc)
		timelines := make([]string, 0, len(touched))
		for name := range touched {
			timelines = append(timelines, name)
		}
		sort.Strings(timelines)
		for _, name := range timelines {
			events = append(events, ChunkStoreEvent{
				ChunkID:    chunk.ID(),
				EntityPath: chunk.EntityPath(),
				Delta:      1,
				Components: []rrcomponent.Descriptor{desc},
				Times:      map[string][]rrtime.TimeInt{name: touched[name]},
			})
		}
		if !isStatic && desc.Equal(rrcomponent.DescClearIsRecursive) {
			s.indexClearMarkers(entity, chunk)
		}
	}

	// Step 4.
	s.coarse.Lock()
	s.chunks[chunk.ID()] = chunk
	s.minRowIndex[chunk.MinRowID()] = chunk.ID()
	// Step 5.
	if isStatic {
		s.stats.StaticBytes += chunk.SizeBytes()
	} else {
		s.stats.TemporalBytes += chunk.SizeBytes()
	}
	// Step 6.
	s.insertID++
	s.coarse.Unlock()

	// Step 7: emit ordered events via subscribers.
	out := make([]ChunkStoreEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, s.bus.emit(ev))
	}
	return out, nil
}

// applyStaticWinner implements step 3's static branch: the incumbent is
// replaced only if chunk's max row id exceeds it; the loser is reported
// as a -1 event and the winner as a +1 event.
func (s *ChunkStore) applyStaticWinner(entity string, path rrpath.Path, desc rrcomponent.Descriptor, chunk *rrchunk.Chunk) ([]ChunkStoreEvent, bool) {
	key := desc.Key()

	s.coarse.Lock()
	comps, ok := s.staticIndex[entity]
	if !ok {
		comps = make(map[string]rrtime.ChunkID)
		s.staticIndex[entity] = comps
	}
	incumbentID, hadIncumbent := comps[key]
	var incumbent *rrchunk.Chunk
	if hadIncumbent {
		incumbent = s.chunks[incumbentID]
	}
	if hadIncumbent && incumbent != nil && incumbent.MaxRowID().Compare(chunk.MaxRowID()) >= 0 {
		s.coarse.Unlock()
		return nil, false
	}
	comps[key] = chunk.ID()
	s.coarse.Unlock()

	events := []ChunkStoreEvent{{
		ChunkID:    chunk.ID(),
		EntityPath: path,
		Delta:      1,
		Components: []rrcomponent.Descriptor{desc},
	}}
	if hadIncumbent && incumbent != nil {
		events = append(events, ChunkStoreEvent{
			ChunkID:    incumbent.ID(),
			EntityPath: path,
			Delta:      -1,
			Components: []rrcomponent.Descriptor{desc},
		})
	}
	return events, true
}

// indexTemporalComponent implements step 3's non-static branch: for
// every timeline this chunk carries, and every (time, row) pair where
// desc is non-null, insert chunk.ID() into temporal_index[entity][timeline][time].
// Returns, per timeline, the time of every row where desc is non-null
// (a time repeats when several rows share it), for the emitted events.
func (s *ChunkStore) indexTemporalComponent(entity string, chunk *rrchunk.Chunk, desc rrcomponent.Descriptor) map[string][]rrtime.TimeInt {
	touched := make(map[string][]rrtime.TimeInt)
	for _, tl := range chunk.Timelines() {
		bucket := s.getOrCreateBucket(entity, tl.Name())
		for i := 0; i < chunk.RowCount(); i++ {
			if chunk.ComponentIsNullAt(desc, i) {
				continue
			}
			t, _ := chunk.TimeAt(tl, i)
			bucket.mu.Lock()
			entry, found := bucket.tree.Get(timeEntry{time: t})
			if !found {
				entry = timeEntry{time: t, chunkIDs: make(map[rrtime.ChunkID]struct{})}
			}
			entry.chunkIDs[chunk.ID()] = struct{}{}
			bucket.tree.ReplaceOrInsert(entry)
			bucket.mu.Unlock()

			touched[tl.Name()] = append(touched[tl.Name()], t)
		}
	}
	return touched
}

// indexClearMarkers records every logged Clear row of chunk into
// clearMarkers[entity][timeline], keyed by the time it was logged at,
// so ClearTimeAtOrBefore can later mask descendant reads (spec §4.3
// tie-breaking rules, last bullet).
func (s *ChunkStore) indexClearMarkers(entity string, chunk *rrchunk.Chunk) {
	for _, tl := range chunk.Timelines() {
		bucket := s.getOrCreateClearBucket(entity, tl.Name())
		for i := 0; i < chunk.RowCount(); i++ {
			if chunk.ComponentIsNullAt(rrcomponent.DescClearIsRecursive, i) {
				continue
			}
			vals, ok := chunk.ComponentValues(rrcomponent.DescClearIsRecursive, i)
			if !ok || len(vals) == 0 {
				continue
			}
			recursive, _ := vals[0].(bool)
			t, _ := chunk.TimeAt(tl, i)

			bucket.mu.Lock()
			entry, found := bucket.tree.Get(clearEntry{time: t})
			if !found || recursive {
				// A recursive marker always wins a same-instant tie over
				// a non-recursive one; otherwise last-write-wins.
				entry = clearEntry{time: t, recursive: recursive}
			}
			bucket.tree.ReplaceOrInsert(entry)
			bucket.mu.Unlock()
		}
	}
}

// ClearTimeAtOrBefore returns the time of the most recent Clear marker
// that masks entity on timeline at or before at: either a marker logged
// on entity itself, or a recursive marker logged on any ancestor of
// entity (spec §4.3: "erases all values of that component on all
// descendants"). The second return reports whether any such marker
// exists.
func (s *ChunkStore) ClearTimeAtOrBefore(entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt) (rrtime.TimeInt, bool) {
	var (
		best  rrtime.TimeInt
		found bool
	)
	chain := entity.Chain()
	for i, ancestor := range chain {
		isSelf := i == len(chain)-1
		bucket, ok := s.getClearBucket(ancestor.String(), timeline.Name())
		if !ok {
			continue
		}
		bucket.mu.RLock()
		bucket.tree.DescendRange(clearEntry{time: at}, clearEntry{time: rrtime.TimeIntStatic}, func(e clearEntry) bool {
			if !isSelf && !e.recursive {
				return true // keep scanning for an earlier, recursive marker
			}
			if !found || e.time.Compare(best) > 0 {
				best, found = e.time, true
			}
			return false
		})
		bucket.mu.RUnlock()
	}
	return best, found
}

// EntityHasComponentOnTimeline reports whether entity carries desc on
// timeline, either temporally or as a static winner.
func (s *ChunkStore) EntityHasComponentOnTimeline(entity rrpath.Path, timeline rrtime.Timeline, desc rrcomponent.Descriptor) bool {
	if _, ok := s.StaticWinner(entity, desc); ok {
		return true
	}
	bucket, ok := s.getBucket(entity.String(), timeline.Name())
	if !ok {
		return false
	}
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	found := false
	bucket.tree.Ascend(func(e timeEntry) bool {
		for cid := range e.chunkIDs {
			c, ok := s.Chunk(cid)
			if ok && c.HasComponent(desc) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// Chunk looks up a chunk by id.
func (s *ChunkStore) Chunk(id rrtime.ChunkID) (*rrchunk.Chunk, bool) {
	s.coarse.RLock()
	defer s.coarse.RUnlock()
	c, ok := s.chunks[id]
	return c, ok
}

// StaticWinner returns the current static-winner chunk for
// (entity, desc), if any.
func (s *ChunkStore) StaticWinner(entity rrpath.Path, desc rrcomponent.Descriptor) (*rrchunk.Chunk, bool) {
	s.coarse.RLock()
	comps, ok := s.staticIndex[entity.String()]
	if !ok {
		s.coarse.RUnlock()
		return nil, false
	}
	id, ok := comps[desc.Key()]
	s.coarse.RUnlock()
	if !ok {
		return nil, false
	}
	return s.Chunk(id)
}

// TemporalChunksAtOrBefore returns the chunks indexed in
// temporal_index[entity][timeline] at times <= at, in descending time
// order, deduplicated, for use by LatestAt (spec §4.4 step 2).
func (s *ChunkStore) TemporalChunksAtOrBefore(entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt) []*rrchunk.Chunk {
	bucket, ok := s.getBucket(entity.String(), timeline.Name())
	if !ok {
		return nil
	}
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()

	seen := make(map[rrtime.ChunkID]struct{})
	var out []*rrchunk.Chunk
	bucket.tree.DescendRange(timeEntry{time: at}, timeEntry{time: rrtime.TimeIntStatic}, func(e timeEntry) bool {
		for cid := range e.chunkIDs {
			if _, dup := seen[cid]; dup {
				continue
			}
			seen[cid] = struct{}{}
			if c, ok := s.Chunk(cid); ok {
				out = append(out, c)
			}
		}
		return true
	})
	return out
}

// TemporalChunksInRange returns the chunks touching
// temporal_index[entity][timeline] within [start, end], ascending by
// time, deduplicated, for use by Range (spec §4.4).
func (s *ChunkStore) TemporalChunksInRange(entity rrpath.Path, timeline rrtime.Timeline, rng rrtime.TimeRange) []*rrchunk.Chunk {
	bucket, ok := s.getBucket(entity.String(), timeline.Name())
	if !ok {
		return nil
	}
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()

	seen := make(map[rrtime.ChunkID]struct{})
	var out []*rrchunk.Chunk
	visit := func(e timeEntry) bool {
		for cid := range e.chunkIDs {
			if _, dup := seen[cid]; dup {
				continue
			}
			seen[cid] = struct{}{}
			if c, ok := s.Chunk(cid); ok {
				out = append(out, c)
			}
		}
		return true
	}
	if rng.Max == rrtime.TimeIntMax {
		// AscendRange's upper bound is exclusive; there is no concrete
		// TimeInt beyond TimeIntMax to use as a strict upper bound, so
		// ascend up to (and excluding) TimeIntMax, then visit it directly.
		bucket.tree.AscendRange(timeEntry{time: rng.Min}, timeEntry{time: rrtime.TimeIntMax}, visit)
		if e, ok := bucket.tree.Get(timeEntry{time: rrtime.TimeIntMax}); ok {
			visit(e)
		}
	} else {
		bucket.tree.AscendRange(timeEntry{time: rng.Min}, timeEntry{time: rng.Max.Add(1)}, visit)
	}
	return out
}

// AllChunksByInsertionOrder returns every live chunk ordered by
// ascending min row id (insertion order), used by GC's "oldest first"
// sweep (spec §4.6 step 2a).
func (s *ChunkStore) AllChunksByInsertionOrder() []*rrchunk.Chunk {
	s.coarse.RLock()
	minRowIDs := make([]rrtime.RowID, 0, len(s.minRowIndex))
	for rid := range s.minRowIndex {
		minRowIDs = append(minRowIDs, rid)
	}
	sort.Slice(minRowIDs, func(i, j int) bool { return minRowIDs[i].Compare(minRowIDs[j]) < 0 })
	out := make([]*rrchunk.Chunk, 0, len(minRowIDs))
	for _, rid := range minRowIDs {
		out = append(out, s.chunks[s.minRowIndex[rid]])
	}
	s.coarse.RUnlock()
	return out
}

// RemoveChunk evicts chunk from all indices and emits a -1 event for
// every (component, timeline) it touched (spec §4.6 step 2c). The
// caller (rrgc) is responsible for the "protected" check beforehand.
func (s *ChunkStore) RemoveChunk(chunk *rrchunk.Chunk) []ChunkStoreEvent {
	entity := chunk.EntityPath().String()

	var events []ChunkStoreEvent

	if chunk.IsStatic() {
		s.coarse.Lock()
		if comps, ok := s.staticIndex[entity]; ok {
			for _, desc := range chunk.Components() {
				if comps[desc.Key()] == chunk.ID() {
					delete(comps, desc.Key())
					events = append(events, ChunkStoreEvent{
						ChunkID:    chunk.ID(),
						EntityPath: chunk.EntityPath(),
						Delta:      -1,
						Components: []rrcomponent.Descriptor{desc},
					})
				}
			}
		}
		s.coarse.Unlock()
	} else {
		for _, desc := range chunk.Components() {
			touched := make(map[string][]rrtime.TimeInt)
			for _, tl := range chunk.Timelines() {
				bucket, ok := s.getBucket(entity, tl.Name())
				if !ok {
					continue
				}
				bucket.mu.Lock()
				for i := 0; i < chunk.RowCount(); i++ {
					if chunk.ComponentIsNullAt(desc, i) {
						continue
					}
					t, _ := chunk.TimeAt(tl, i)
					touched[tl.Name()] = append(touched[tl.Name()], t)
					entry, found := bucket.tree.Get(timeEntry{time: t})
					if !found {
						continue
					}
					delete(entry.chunkIDs, chunk.ID())
					if len(entry.chunkIDs) == 0 {
						bucket.tree.Delete(entry)
					} else {
						bucket.tree.ReplaceOrInsert(entry)
					}
				}
				bucket.mu.Unlock()
			}
			timelines := make([]string, 0, len(touched))
			for name := range touched {
				timelines = append(timelines, name)
			}
			sort.Strings(timelines)
			for _, name := range timelines {
				events = append(events, ChunkStoreEvent{
					ChunkID:    chunk.ID(),
					EntityPath: chunk.EntityPath(),
					Delta:      -1,
					Components: []rrcomponent.Descriptor{desc},
					Times:      map[string][]rrtime.TimeInt{name: touched[name]},
				})
			}
		}
	}

	s.coarse.Lock()
	delete(s.chunks, chunk.ID())
	delete(s.minRowIndex, chunk.MinRowID())
	if chunk.IsStatic() {
		s.stats.StaticBytes -= chunk.SizeBytes()
	} else {
		s.stats.TemporalBytes -= chunk.SizeBytes()
	}
	s.gcID++
	s.coarse.Unlock()

	out := make([]ChunkStoreEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, s.bus.emit(ev))
	}
	return out
}
