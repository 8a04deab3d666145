// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrchunk

import (
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrerrors"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// rowInput is one row accumulated by a Builder before Build() assembles
// the immutable columnar Chunk.
type rowInput struct {
	rowID      rrtime.RowID
	times      map[string]rrtime.TimeInt // timeline name -> time for this row
	components map[string][]any          // descriptor key -> list of values (absent = null cell)
}

// Builder accumulates rows for a single entity path and produces an
// immutable, validated Chunk.
type Builder struct {
	entityPath rrpath.Path
	rows       []rowInput
	timelines  map[string]rrtime.Timeline
	descs      map[string]rrcomponent.Descriptor
	presetID   *rrtime.ChunkID
}

// NewBuilder starts accumulating rows for entityPath.
func NewBuilder(entityPath rrpath.Path) *Builder {
	return &Builder{
		entityPath: entityPath,
		timelines:  make(map[string]rrtime.Timeline),
		descs:      make(map[string]rrcomponent.Descriptor),
	}
}

// AppendRow adds one row. times maps timeline name to this row's time on
// that timeline; a timeline the chunk has seen on other rows but absent
// here defaults to STATIC for this row. components maps a component
// descriptor to its (possibly empty, possibly multi-valued) list of
// values for this row; a descriptor absent here is a null cell for this
// row.
func (b *Builder) AppendRow(rowID rrtime.RowID, times map[rrtime.Timeline]rrtime.TimeInt, components map[rrcomponent.Descriptor][]any) {
	row := rowInput{
		rowID:      rowID,
		times:      make(map[string]rrtime.TimeInt, len(times)),
		components: make(map[string][]any, len(components)),
	}
	for tl, t := range times {
		b.timelines[tl.Name()] = tl
		row.times[tl.Name()] = t
	}
	for d, vals := range components {
		b.descs[d.Key()] = d
		row.components[d.Key()] = vals
	}
	b.rows = append(b.rows, row)
}

// Build validates and assembles the accumulated rows into an immutable
// Chunk (spec §4.2). Row ids are sorted if out of order rather than
// rejected (invariant 1: "a normalization step sorts if violated and
// marks sorted=true").
func (b *Builder) Build() (*Chunk, error) {
	n := len(b.rows)

	seen := make(map[rrtime.RowID]struct{}, n)
	for _, r := range b.rows {
		if _, dup := seen[r.rowID]; dup {
			return nil, fmt.Errorf("%w: %s", rrerrors.ErrDuplicateRowID, r.rowID)
		}
		seen[r.rowID] = struct{}{}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sortedAlready := true
	for i := 1; i < n; i++ {
		if b.rows[order[i]].rowID.Compare(b.rows[order[i-1]].rowID) < 0 {
			sortedAlready = false
			break
		}
	}
	if !sortedAlready {
		sort.Slice(order, func(i, j int) bool {
			return b.rows[order[i]].rowID.Compare(b.rows[order[j]].rowID) < 0
		})
	}

	rowIDs := make([]rrtime.RowID, n)
	for i, idx := range order {
		rowIDs[i] = b.rows[idx].rowID
	}

	indexCols := make(map[string]*indexColumn, len(b.timelines))
	for name, tl := range b.timelines {
		times := make([]rrtime.TimeInt, n)
		allStatic := true
		for i, idx := range order {
			t, ok := b.rows[idx].times[name]
			if !ok {
				t = rrtime.TimeIntStatic
			}
			times[i] = t
			if !t.IsStatic() {
				allStatic = false
			}
		}
		if !allStatic {
			hasStatic := false
			for _, t := range times {
				if t.IsStatic() {
					hasStatic = true
					break
				}
			}
			if hasStatic {
				return nil, fmt.Errorf("%w: timeline %q", rrerrors.ErrMixedStatic, name)
			}
		}
		sortedByTime := true
		for i := 1; i < n; i++ {
			if times[i].Compare(times[i-1]) < 0 {
				sortedByTime = false
				break
			}
		}
		indexCols[name] = &indexColumn{
			timeline:     tl,
			times:        times,
			allStatic:    allStatic,
			sortedByTime: sortedByTime,
		}
	}

	componentCols := make(map[string]*componentColumn, len(b.descs))
	for key, desc := range b.descs {
		buf, err := buildComponentColumn(desc, b.rows, order, key)
		if err != nil {
			return nil, err
		}
		componentCols[key] = &componentColumn{descriptor: desc, buf: buf}
	}

	id := rrtime.NewChunkID()
	if b.presetID != nil {
		id = *b.presetID
	}
	return &Chunk{
		id:            id,
		entityPath:    b.entityPath,
		rowIDs:        rowIDs,
		sortedByRowID: true,
		index:         indexCols,
		components:    componentCols,
	}, nil
}

func buildComponentColumn(desc rrcomponent.Descriptor, rows []rowInput, order []int, key string) (*arrowColumn, error) {
	codec := rrcomponent.Lookup(desc.Type)
	bldr := array.NewListBuilder(defaultAllocator, arrow.BinaryTypes.Binary)
	defer bldr.Release()
	valBldr := bldr.ValueBuilder().(*array.BinaryBuilder)

	for _, idx := range order {
		vals, ok := rows[idx].components[key]
		if !ok {
			bldr.AppendNull()
			continue
		}
		bldr.Append(true)
		for _, v := range vals {
			enc, err := codec.Encode(v)
			if err != nil {
				return nil, fmt.Errorf("encode component %s: %w", desc, err)
			}
			valBldr.Append(enc)
		}
	}
	arr := bldr.NewListArray()
	return newArrowColumn(arr), nil
}
