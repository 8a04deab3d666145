// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrchunk

// ColumnBuffer abstracts the columnar backing array a chunk's component
// and index columns are stored in, per spec §9: "abstract as a columnar
// buffer interface... length, slice, concat, null-check, downcast". The
// only implementation shipped here is Arrow-backed (arrowColumn), and
// Chunk holds its component columns as *arrowColumn directly.
type ColumnBuffer interface {
	// Len returns the number of rows in the column.
	Len() int

	// Slice returns the half-open [start, end) row range, sharing the
	// underlying buffer (zero-copy).
	Slice(start, end int) ColumnBuffer

	// IsNull reports whether row i carries no value for this column
	// ("this row does not touch this component").
	IsNull(i int) bool

	// Concat returns a new buffer containing this buffer's rows followed
	// by other's.
	Concat(other ColumnBuffer) ColumnBuffer

	// Release frees any resources held by the buffer. Safe to call
	// multiple times.
	Release()
}
