// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrchunk

import "github.com/tomtom215/rrdstore/internal/rrcomponent"

// Slice returns the half-open row range [start, end), sharing the
// underlying column buffers with the original chunk (spec §4.2:
// "zero-copy range restriction").
func (c *Chunk) Slice(start, end int) *Chunk {
	if start < 0 || end > len(c.rowIDs) || start > end {
		panic("rrchunk: Slice out of range")
	}
	index := make(map[string]*indexColumn, len(c.index))
	for name, ic := range c.index {
		index[name] = &indexColumn{
			timeline:     ic.timeline,
			times:        ic.times[start:end],
			allStatic:    ic.allStatic,
			sortedByTime: ic.sortedByTime,
		}
	}
	components := make(map[string]*componentColumn, len(c.components))
	for key, cc := range c.components {
		components[key] = &componentColumn{
			descriptor: cc.descriptor,
			buf:        cc.buf.Slice(start, end).(*arrowColumn),
		}
	}
	return &Chunk{
		id:            c.id,
		entityPath:    c.entityPath,
		rowIDs:        c.rowIDs[start:end],
		sortedByRowID: c.sortedByRowID,
		index:         index,
		components:    components,
	}
}

// FilterComponents projects the chunk onto the given subset of
// component descriptors, sharing underlying buffers (spec §4.2).
func (c *Chunk) FilterComponents(descriptors []rrcomponent.Descriptor) *Chunk {
	keep := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		keep[d.Key()] = struct{}{}
	}
	components := make(map[string]*componentColumn, len(keep))
	for key, cc := range c.components {
		if _, ok := keep[key]; ok {
			components[key] = cc
		}
	}
	return &Chunk{
		id:            c.id,
		entityPath:    c.entityPath,
		rowIDs:        c.rowIDs,
		sortedByRowID: c.sortedByRowID,
		index:         c.index,
		components:    components,
	}
}
