// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrchunk

import (
	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// Normalize returns c if it is already sorted by row id, or a rebuilt
// copy with rows reordered by row-id otherwise (spec §4.3 insertion
// step 1: "if row ids are out of order, sort all columns by row-id").
// The rebuilt chunk keeps the original ChunkId.
func (c *Chunk) Normalize() (*Chunk, error) {
	if c.sortedByRowID {
		return c, nil
	}

	b := NewBuilder(c.entityPath)
	id := c.id
	b.presetID = &id

	timelines := c.Timelines()
	descs := c.Components()

	for i := 0; i < c.RowCount(); i++ {
		times := make(map[rrtime.Timeline]rrtime.TimeInt, len(timelines))
		for _, tl := range timelines {
			t, _ := c.TimeAt(tl, i)
			times[tl] = t
		}
		comps := make(map[rrcomponent.Descriptor][]any, len(descs))
		for _, d := range descs {
			if vals, ok := c.ComponentValues(d, i); ok {
				comps[d] = vals
			}
		}
		b.AppendRow(c.RowID(i), times, comps)
	}

	return b.Build()
}
