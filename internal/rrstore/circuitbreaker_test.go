// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrstore

import (
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/rrdstore/internal/rrchunk"
	"github.com/tomtom215/rrdstore/internal/rrerrors"
)

// corruptChunk builds a well-formed chunk, round-trips it through Arrow,
// then truncates its component column to fewer rows than the chunk's row
// count, the way a corrupted wire stream could (arrow.go's FromRecordBatch
// trusts each column's own length for components, only catching the
// mismatch in Chunk.Validate). This reproduces the external-ingest
// failure InsertChunkFromIngest's breaker is meant to react to.
func corruptChunk(t *testing.T) *rrchunk.Chunk {
	t.Helper()
	c := buildTemporalChunk(t, []int64{1, 2, 3})
	rec, err := c.ToRecordBatch("rec-0001")
	require.NoError(t, err)
	defer rec.Release()

	schema := rec.Schema()
	cols := make([]arrow.Array, rec.NumCols())
	for i := 0; i < int(rec.NumCols()); i++ {
		col := rec.Column(i)
		if strings.HasPrefix(schema.Field(i).Name, "component:") {
			cols[i] = array.NewSlice(col, 0, 1)
			continue
		}
		col.Retain()
		cols[i] = col
	}
	corruptRec := array.NewRecord(schema, cols, rec.NumRows())
	defer corruptRec.Release()

	corrupt, _, err := rrchunk.FromRecordBatch(corruptRec)
	require.NoError(t, err)
	return corrupt
}

func TestInsertChunkFromIngestPassesThroughWithoutBreaker(t *testing.T) {
	s := New(uuid.New())
	assert.Equal(t, "", s.IngestBreakerState())

	c := buildTemporalChunk(t, []int64{1})
	events, err := s.InsertChunkFromIngest(c)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestIngestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	s := New(uuid.New())
	s.EnableIngestCircuitBreaker(IngestCircuitBreakerConfig{
		Name:             "test-ingest",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	})
	assert.Equal(t, "closed", s.IngestBreakerState())

	bad := corruptChunk(t)
	for i := 0; i < 3; i++ {
		_, err := s.InsertChunkFromIngest(bad)
		assert.ErrorIs(t, err, rrerrors.ErrMismatchedColumnLength)
	}
	assert.Equal(t, "open", s.IngestBreakerState())

	_, err := s.InsertChunkFromIngest(bad)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
