// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrchunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrerrors"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

var (
	translationDesc = rrcomponent.New("rrd.archetypes.Transform3D", "translation", rrcomponent.TypeTranslation3D)
	frameTimeline   = rrtime.NewTimeline("frame", rrtime.TimelineSequence)
)

func buildSimpleChunk(t *testing.T) (*Chunk, []rrtime.RowID) {
	t.Helper()
	b := NewBuilder(rrpath.Parse("/world/robot"))
	rowIDs := make([]rrtime.RowID, 3)
	for i := 0; i < 3; i++ {
		rowIDs[i] = rrtime.NewRowID()
		b.AppendRow(
			rowIDs[i],
			map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(i)},
			map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{float32(i), 0, 0}}},
		)
	}
	c, err := b.Build()
	require.NoError(t, err)
	return c, rowIDs
}

func TestBuildRejectsDuplicateRowID(t *testing.T) {
	b := NewBuilder(rrpath.Root())
	id := rrtime.NewRowID()
	b.AppendRow(id, nil, nil)
	b.AppendRow(id, nil, nil)
	_, err := b.Build()
	assert.ErrorIs(t, err, rrerrors.ErrDuplicateRowID)
}

func TestBuildRejectsMixedStaticTimeline(t *testing.T) {
	b := NewBuilder(rrpath.Root())
	b.AppendRow(rrtime.NewRowID(), map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(1)}, nil)
	b.AppendRow(rrtime.NewRowID(), nil, nil) // no time on frameTimeline -> defaults to STATIC
	_, err := b.Build()
	assert.ErrorIs(t, err, rrerrors.ErrMixedStatic)
}

func TestBuildSortsOutOfOrderRows(t *testing.T) {
	b := NewBuilder(rrpath.Root())
	first := rrtime.NewRowID()  // minted earlier, so it orders first
	second := rrtime.NewRowID() // minted later, so it orders second
	b.AppendRow(second, nil, nil)
	b.AppendRow(first, nil, nil)
	c, err := b.Build()
	require.NoError(t, err)
	assert.True(t, c.IsSortedByRowID())
	for i := 1; i < c.RowCount(); i++ {
		assert.True(t, c.RowID(i).Compare(c.RowID(i-1)) > 0)
	}
	assert.Equal(t, first, c.RowID(0))
	assert.Equal(t, second, c.RowID(1))
}

func TestChunkStaticAndSortedFlags(t *testing.T) {
	c, rowIDs := buildSimpleChunk(t)
	assert.Equal(t, 3, c.RowCount())
	assert.False(t, c.IsStatic())
	assert.True(t, c.IsSortedByTime(frameTimeline))
	assert.Equal(t, rowIDs[0], c.MinRowID())
	assert.Equal(t, rowIDs[2], c.MaxRowID())
}

func TestChunkAllStaticComponent(t *testing.T) {
	b := NewBuilder(rrpath.Root())
	b.AppendRow(rrtime.NewRowID(), nil, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{1, 2, 3}}})
	c, err := b.Build()
	require.NoError(t, err)
	assert.True(t, c.IsStatic())
}

func TestChunkComponentValuesAndNulls(t *testing.T) {
	c, _ := buildSimpleChunk(t)
	vals, ok := c.ComponentValues(translationDesc, 1)
	require.True(t, ok)
	require.Len(t, vals, 1)
	assert.Equal(t, [3]float32{1, 0, 0}, vals[0])

	other := rrcomponent.New("rrd.archetypes.Transform3D", "rotation", rrcomponent.TypeRotationQuat)
	assert.True(t, c.ComponentIsNullAt(other, 0))
}

func TestChunkValidateDetectsMismatchedColumnLength(t *testing.T) {
	c, _ := buildSimpleChunk(t)
	c.index[frameTimeline.Name()].times = c.index[frameTimeline.Name()].times[:2]
	err := c.Validate()
	assert.ErrorIs(t, err, rrerrors.ErrMismatchedColumnLength)
}

func TestChunkSliceIsZeroCopyRowRange(t *testing.T) {
	c, rowIDs := buildSimpleChunk(t)
	s := c.Slice(1, 3)
	assert.Equal(t, 2, s.RowCount())
	assert.Equal(t, rowIDs[1], s.RowID(0))
	assert.Equal(t, rowIDs[2], s.RowID(1))
	vals, ok := s.ComponentValues(translationDesc, 0)
	require.True(t, ok)
	assert.Equal(t, [3]float32{1, 0, 0}, vals[0])
}

func TestChunkFilterComponentsProjectsColumns(t *testing.T) {
	c, _ := buildSimpleChunk(t)
	filtered := c.FilterComponents([]rrcomponent.Descriptor{translationDesc})
	assert.True(t, filtered.HasComponent(translationDesc))
	assert.Len(t, filtered.Components(), 1)
	assert.Equal(t, c.RowCount(), filtered.RowCount())
}

func TestChunkRecordBatchRoundTrip(t *testing.T) {
	c, rowIDs := buildSimpleChunk(t)
	rec, err := c.ToRecordBatch("rec-0001")
	require.NoError(t, err)
	defer rec.Release()

	got, recordingID, err := FromRecordBatch(rec)
	require.NoError(t, err)
	assert.Equal(t, "rec-0001", recordingID)
	assert.Equal(t, c.ID(), got.ID())
	assert.True(t, c.EntityPath().Equal(got.EntityPath()))
	assert.Equal(t, c.RowCount(), got.RowCount())
	assert.Equal(t, c.IsSortedByRowID(), got.IsSortedByRowID())

	for i := range rowIDs {
		assert.Equal(t, c.RowID(i), got.RowID(i))
		wantTime, _ := c.TimeAt(frameTimeline, i)
		gotTime, ok := got.TimeAt(frameTimeline, i)
		require.True(t, ok)
		assert.Equal(t, wantTime, gotTime)

		wantVals, _ := c.ComponentValues(translationDesc, i)
		gotVals, ok := got.ComponentValues(translationDesc, i)
		require.True(t, ok)
		assert.Equal(t, wantVals, gotVals)
	}
}
