// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrgc implements the chunk store's garbage collector (spec
// §4.6): a bounded-memory eviction sweep that protects the most recent
// chunks per (entity, component) and is interruptible between chunks,
// grounded on the donor's internal/wal/compaction.go bounded,
// interruptible sweep over stored entries.
package rrgc

import (
	"context"
	"sort"

	"github.com/tomtom215/rrdstore/internal/rrchunk"
	"github.com/tomtom215/rrdstore/internal/rrlog"
	"github.com/tomtom215/rrdstore/internal/rrmetrics"
	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// GcOptions configures one GC sweep (spec §4.6).
type GcOptions struct {
	// TargetMemoryBytes is the in-memory byte total the sweep tries to
	// reach or go below.
	TargetMemoryBytes int64

	// ProtectLatestNPerComponent exempts a chunk from eviction while it
	// is among the N most recent chunks (by max row id) touching any
	// (entity, component) pair it contains.
	ProtectLatestNPerComponent int

	// DontProtectTemporalOnTimelines names timelines whose temporal
	// chunks are never protected by ProtectLatestNPerComponent, even if
	// they would otherwise qualify as one of the N most recent.
	DontProtectTemporalOnTimelines []string
}

// GcShortfall reports that a sweep could not bring the store at or
// below TargetMemoryBytes because every remaining chunk was protected
// (spec §4.6 step 3) — a structured result value returned alongside a
// nil error, not a Go error in its own right.
type GcShortfall struct {
	BytesNeeded int64
}

// GC runs one eviction sweep against store per opts, choosing the
// oldest unprotected chunk by min row id each iteration and stopping
// once the target is reached, no evictable chunk remains, or ctx is
// canceled between chunks (spec §4.6).
func GC(ctx context.Context, store *rrstore.ChunkStore, opts GcOptions) (*GcShortfall, error) {
	dontProtect := make(map[string]struct{}, len(opts.DontProtectTemporalOnTimelines))
	for _, tl := range opts.DontProtectTemporalOnTimelines {
		dontProtect[tl] = struct{}{}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stats := store.Stats()
		total := stats.StaticBytes + stats.TemporalBytes
		if total <= opts.TargetMemoryBytes {
			return nil, nil
		}

		chunks := store.AllChunksByInsertionOrder()
		protected := protectedChunkIDs(chunks, opts.ProtectLatestNPerComponent, dontProtect)

		victim, ok := oldestEvictable(chunks, protected)
		if !ok {
			shortfall := total - opts.TargetMemoryBytes
			rrmetrics.RecordGCShortfall()
			rrlog.Warn().Int64("bytes_needed", shortfall).Msg("gc sweep could not reach target, every remaining chunk is protected")
			return &GcShortfall{BytesNeeded: shortfall}, nil
		}

		freed := victim.SizeBytes()
		events := store.RemoveChunk(victim)
		rrmetrics.RecordGCEviction(freed)
		rrlog.Debug().
			Str("chunk_id", victim.ID().String()).
			Str("entity_path", victim.EntityPath().String()).
			Int64("freed_bytes", freed).
			Int("events", len(events)).
			Msg("gc evicted chunk")
	}
}

// protectedChunkIDs computes, for every (entity, component) pair across
// chunks, the set of the N chunks with the greatest max row id touching
// it, excluding temporal chunks on a don't-protect timeline.
func protectedChunkIDs(chunks []*rrchunk.Chunk, n int, dontProtect map[string]struct{}) map[rrtime.ChunkID]struct{} {
	protected := make(map[rrtime.ChunkID]struct{})
	if n <= 0 {
		return protected
	}

	type ranked struct {
		chunk *rrchunk.Chunk
	}
	byKey := make(map[string][]ranked)

	for _, c := range chunks {
		eligible := c.IsStatic()
		if !eligible {
			for _, tl := range c.Timelines() {
				if _, excluded := dontProtect[tl.Name()]; !excluded {
					eligible = true
					break
				}
			}
		}
		if !eligible {
			continue
		}
		entity := c.EntityPath().String()
		for _, desc := range c.Components() {
			key := entity + "|" + desc.Key()
			byKey[key] = append(byKey[key], ranked{chunk: c})
		}
	}

	for _, rs := range byKey {
		sort.Slice(rs, func(i, j int) bool {
			return rs[i].chunk.MaxRowID().Compare(rs[j].chunk.MaxRowID()) > 0
		})
		limit := n
		if limit > len(rs) {
			limit = len(rs)
		}
		for _, r := range rs[:limit] {
			protected[r.chunk.ID()] = struct{}{}
		}
	}

	return protected
}

// oldestEvictable returns the first chunk in chunks (already ordered
// oldest-first by min row id) not present in protected.
func oldestEvictable(chunks []*rrchunk.Chunk, protected map[rrtime.ChunkID]struct{}) (*rrchunk.Chunk, bool) {
	for _, c := range chunks {
		if _, ok := protected[c.ID()]; ok {
			continue
		}
		return c, true
	}
	return nil, false
}
