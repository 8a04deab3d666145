// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrtime implements the identifier and time primitives: RowID,
// ChunkID, TimeInt, Timeline, and TimeRange.
package rrtime

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RowID is a 128-bit monotonic identifier: a high-entropy timestamp
// prefix plus a monotonically-increasing counter. Row ids are totally
// ordered and unique across the process lifetime; they are the
// tie-breaker for queries at equal times.
type RowID struct{ u ulid.ULID }

// ChunkID is a 128-bit monotonic identifier for chunks. Its ordering
// defines chunk insertion order, independent of RowID's counter space.
type ChunkID struct{ u ulid.ULID }

var (
	rowGen   = newMonotonicGen()
	chunkGen = newMonotonicGen()
)

// NewRowID returns a strictly monotonic RowID, guaranteed increasing
// even across backward wall-clock steps within this process.
func NewRowID() RowID { return RowID{u: rowGen.next()} }

// NewChunkID returns a strictly monotonic ChunkID.
func NewChunkID() ChunkID { return ChunkID{u: chunkGen.next()} }

// Compare returns -1, 0, or 1 per the total order over (timestamp
// prefix, counter).
func (r RowID) Compare(o RowID) int { return r.u.Compare(o.u) }

// Less reports whether r orders strictly before o.
func (r RowID) Less(o RowID) bool { return r.Compare(o) < 0 }

// IsZero reports whether r is the zero value (never produced by NewRowID).
func (r RowID) IsZero() bool { return r.u.Compare(ulid.ULID{}) == 0 }

// String renders the canonical base32 ULID text form.
func (r RowID) String() string { return r.u.String() }

// MarshalBinary returns the 16-byte wire form.
func (r RowID) MarshalBinary() ([]byte, error) { return r.u.MarshalBinary() }

// UnmarshalBinary restores a RowID from its 16-byte wire form.
func (r *RowID) UnmarshalBinary(b []byte) error { return r.u.UnmarshalBinary(b) }

func (c ChunkID) Compare(o ChunkID) int { return c.u.Compare(o.u) }
func (c ChunkID) Less(o ChunkID) bool   { return c.Compare(o) < 0 }
func (c ChunkID) IsZero() bool          { return c.u.Compare(ulid.ULID{}) == 0 }
func (c ChunkID) String() string        { return c.u.String() }

func (c ChunkID) MarshalBinary() ([]byte, error)  { return c.u.MarshalBinary() }
func (c *ChunkID) UnmarshalBinary(b []byte) error { return c.u.UnmarshalBinary(b) }

// ParseChunkID parses the canonical base32 ULID text form produced by
// ChunkID.String, as found in wire/schema metadata.
func ParseChunkID(s string) (ChunkID, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return ChunkID{}, err
	}
	return ChunkID{u: u}, nil
}

// monotonicGen produces strictly increasing ULIDs even when the wall
// clock regresses between calls: on a collision or regression it treats
// the last-issued ULID as a 128-bit big-endian counter and increments it.
type monotonicGen struct {
	mu   sync.Mutex
	last ulid.ULID
}

func newMonotonicGen() *monotonicGen {
	return &monotonicGen{}
}

func (g *monotonicGen) next() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(time.Now())
	id, err := ulid.New(ms, rand.Reader)
	if err == nil && id.Compare(g.last) > 0 {
		g.last = id
		return id
	}

	g.last = incrementULID(g.last)
	return g.last
}

// incrementULID adds 1 to u treated as a 128-bit big-endian integer, with
// carry. Used only on clock regression or (astronomically unlikely)
// entropy collision.
func incrementULID(u ulid.ULID) ulid.ULID {
	for i := len(u) - 1; i >= 0; i-- {
		u[i]++
		if u[i] != 0 {
			break
		}
	}
	return u
}
