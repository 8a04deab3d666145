// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrchunk implements Chunk, the atomic immutable columnar write
// unit described in spec §3/§4.2: a single entity path, a strictly
// increasing RowID column, zero or more per-timeline index columns, and
// one or more component columns keyed by component descriptor.
package rrchunk

import (
	"fmt"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrerrors"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// indexColumn is a per-timeline time column: one TimeInt per row.
type indexColumn struct {
	timeline     rrtime.Timeline
	times        []rrtime.TimeInt
	allStatic    bool
	sortedByTime bool
}

// componentColumn is a component's backing List<Binary> buffer: one
// (possibly empty, possibly null) list of values per row.
type componentColumn struct {
	descriptor rrcomponent.Descriptor
	buf        *arrowColumn
}

// Chunk is the atomic, immutable write unit (spec §3, §4.2).
type Chunk struct {
	id            rrtime.ChunkID
	entityPath    rrpath.Path
	rowIDs        []rrtime.RowID
	sortedByRowID bool
	index         map[string]*indexColumn
	components    map[string]*componentColumn
}

// ID returns the chunk's unique, monotonic ChunkID.
func (c *Chunk) ID() rrtime.ChunkID { return c.id }

// EntityPath returns the chunk's single entity path.
func (c *Chunk) EntityPath() rrpath.Path { return c.entityPath }

// RowCount returns the number of rows in the chunk.
func (c *Chunk) RowCount() int { return len(c.rowIDs) }

// RowID returns the RowID of row i.
func (c *Chunk) RowID(i int) rrtime.RowID { return c.rowIDs[i] }

// MaxRowID returns the greatest RowID in the chunk (used for static
// winner selection and GC's "N most recent chunks" rule). Panics on an
// empty chunk.
func (c *Chunk) MaxRowID() rrtime.RowID {
	return c.rowIDs[len(c.rowIDs)-1]
}

// MinRowID returns the smallest RowID in the chunk, used as the chunk
// store's secondary insertion-order index key.
func (c *Chunk) MinRowID() rrtime.RowID {
	return c.rowIDs[0]
}

// IsSortedByRowID reports whether rows are in row-id order (always true
// post-Build; exposed for invariant testing).
func (c *Chunk) IsSortedByRowID() bool { return c.sortedByRowID }

// Timelines returns the timelines this chunk carries an index column for.
func (c *Chunk) Timelines() []rrtime.Timeline {
	out := make([]rrtime.Timeline, 0, len(c.index))
	for _, ic := range c.index {
		out = append(out, ic.timeline)
	}
	return out
}

// Components returns the descriptors this chunk carries columns for.
func (c *Chunk) Components() []rrcomponent.Descriptor {
	out := make([]rrcomponent.Descriptor, 0, len(c.components))
	for _, cc := range c.components {
		out = append(out, cc.descriptor)
	}
	return out
}

// HasComponent reports whether the chunk carries a column for desc.
func (c *Chunk) HasComponent(desc rrcomponent.Descriptor) bool {
	_, ok := c.components[desc.Key()]
	return ok
}

// IsSortedByTime reports whether the given timeline's index column is
// non-decreasing. Chunks with no column for tl report true (vacuously).
func (c *Chunk) IsSortedByTime(tl rrtime.Timeline) bool {
	ic, ok := c.index[tl.Name()]
	if !ok {
		return true
	}
	return ic.sortedByTime
}

// IsStatic reports whether every index column is uniformly STATIC (or
// the chunk carries no index columns at all) — spec §3 invariant 3.
func (c *Chunk) IsStatic() bool {
	for _, ic := range c.index {
		if !ic.allStatic {
			return false
		}
	}
	return true
}

// TimeAt returns the TimeInt of row i on timeline tl, or
// (TimeIntStatic, false) if the chunk carries no column for tl.
func (c *Chunk) TimeAt(tl rrtime.Timeline, i int) (rrtime.TimeInt, bool) {
	ic, ok := c.index[tl.Name()]
	if !ok {
		return rrtime.TimeIntStatic, false
	}
	return ic.times[i], true
}

// ComponentValues returns the decoded values logged at row i for desc,
// or (nil, false) if the row's cell is null (the component was not
// touched by this row).
func (c *Chunk) ComponentValues(desc rrcomponent.Descriptor, i int) ([]any, bool) {
	cc, ok := c.components[desc.Key()]
	if !ok {
		return nil, false
	}
	raw, hasCell := binaryListValues(cc.buf.Arrow(), i)
	if !hasCell {
		return nil, false
	}
	codec := rrcomponent.Lookup(desc.Type)
	out := make([]any, 0, len(raw))
	for _, b := range raw {
		v, err := codec.Decode(b)
		if err != nil {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// ComponentIsNullAt reports whether row i's cell for desc is null (the
// row does not touch this component).
func (c *Chunk) ComponentIsNullAt(desc rrcomponent.Descriptor, i int) bool {
	cc, ok := c.components[desc.Key()]
	if !ok {
		return true
	}
	return cc.buf.IsNull(i)
}

// SizeBytes estimates the chunk's resident memory footprint, used by the
// store's cumulative byte-size statistics (spec §4.3 step 5) and the GC
// (spec §4.6).
func (c *Chunk) SizeBytes() int64 {
	var total int64
	total += int64(len(c.rowIDs)) * 16 // RowID is 128 bits
	for _, ic := range c.index {
		total += int64(len(ic.times)) * 8
	}
	for _, cc := range c.components {
		total += arrowArraySize(cc.buf.Arrow())
	}
	return total
}

// Validate re-checks invariants 1-3 of spec §3. Build() already enforces
// these; Validate exists for chunks reconstructed via FromRecordBatch,
// where a corrupt wire stream could violate them.
func (c *Chunk) Validate() error {
	n := len(c.rowIDs)
	for i := 1; i < n; i++ {
		if c.rowIDs[i].Compare(c.rowIDs[i-1]) <= 0 {
			return fmt.Errorf("%w: row %d", rrerrors.ErrDuplicateRowID, i)
		}
	}
	for name, ic := range c.index {
		if len(ic.times) != n {
			return fmt.Errorf("%w: index column %q has %d rows, want %d", rrerrors.ErrMismatchedColumnLength, name, len(ic.times), n)
		}
		if !ic.allStatic {
			for _, t := range ic.times {
				if t.IsStatic() {
					return fmt.Errorf("%w: timeline %q", rrerrors.ErrMixedStatic, name)
				}
			}
		}
	}
	for key, cc := range c.components {
		if cc.buf.Len() != n {
			return fmt.Errorf("%w: component column %q has %d rows, want %d", rrerrors.ErrMismatchedColumnLength, key, cc.buf.Len(), n)
		}
	}
	return nil
}

