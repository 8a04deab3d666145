// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrchunk

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// defaultAllocator is the process-wide Arrow allocator. Chunks are
// read-mostly and short-lived relative to the process, so a single Go
// allocator (rather than per-chunk pools) keeps the memory model simple;
// revisit if profiling shows GC pressure from large recordings.
var defaultAllocator = memory.NewGoAllocator()

// arrowColumn adapts an arrow.Array to ColumnBuffer. It backs both index
// (time) columns and component (List<Binary>) columns.
type arrowColumn struct {
	arr arrow.Array
}

func newArrowColumn(arr arrow.Array) *arrowColumn { return &arrowColumn{arr: arr} }

func (c *arrowColumn) Len() int { return c.arr.Len() }

func (c *arrowColumn) IsNull(i int) bool { return c.arr.IsNull(i) }

func (c *arrowColumn) Slice(start, end int) ColumnBuffer {
	return newArrowColumn(array.NewSlice(c.arr, int64(start), int64(end)))
}

func (c *arrowColumn) Concat(other ColumnBuffer) ColumnBuffer {
	o, ok := other.(*arrowColumn)
	if !ok {
		panic("rrchunk: Concat across mismatched ColumnBuffer implementations")
	}
	out, err := array.Concatenate([]arrow.Array{c.arr, o.arr}, defaultAllocator)
	if err != nil {
		panic("rrchunk: arrow concat: " + err.Error())
	}
	return newArrowColumn(out)
}

func (c *arrowColumn) Release() {
	if c.arr != nil {
		c.arr.Release()
	}
}

// Arrow exposes the underlying arrow.Array for callers (such as
// rrchunk.ToRecordBatch) that need the concrete type.
func (c *arrowColumn) Arrow() arrow.Array { return c.arr }

// arrowArraySize sums the lengths of the array's backing buffers, used
// for the chunk store's cumulative byte-size statistics (spec §4.3 step
// 5, §4.6).
func arrowArraySize(arr arrow.Array) int64 {
	if arr == nil {
		return 0
	}
	var total int64
	for _, buf := range arr.Data().Buffers() {
		if buf != nil {
			total += int64(buf.Len())
		}
	}
	return total
}

// binaryListValues reads the decoded bytes of row i of a List<Binary>
// column, and whether the cell has any values at all (an empty but
// non-null list is a legal, valueless row).
func binaryListValues(arr arrow.Array, row int) ([][]byte, bool) {
	list, ok := arr.(*array.List)
	if !ok {
		return nil, false
	}
	if list.IsNull(row) {
		return nil, false
	}
	start, end := list.ValueOffsets(row)
	child, ok := list.ListValues().(*array.Binary)
	if !ok {
		return nil, false
	}
	out := make([][]byte, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, child.Value(int(i)))
	}
	return out, true
}
