// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/rrdstore/internal/rrchunk"
	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

var (
	robotPath       = rrpath.Parse("/world/robot")
	translationDesc = rrcomponent.New("rrd.archetypes.Transform3D", "translation", rrcomponent.TypeTranslation3D)
	frameTimeline   = rrtime.NewTimeline("frame", rrtime.TimelineSequence)
)

func buildTemporalChunk(t *testing.T, frames []int64) *rrchunk.Chunk {
	t.Helper()
	b := rrchunk.NewBuilder(robotPath)
	for _, f := range frames {
		b.AppendRow(
			rrtime.NewRowID(),
			map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(f)},
			map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{float32(f), 0, 0}}},
		)
	}
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func buildStaticChunk(t *testing.T) *rrchunk.Chunk {
	t.Helper()
	b := rrchunk.NewBuilder(robotPath)
	b.AppendRow(rrtime.NewRowID(), nil, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{9, 9, 9}}})
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func TestInsertChunkIndexesTemporalRows(t *testing.T) {
	s := New(uuid.New())
	c := buildTemporalChunk(t, []int64{1, 2, 3})

	events, err := s.InsertChunk(c)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, 1, events[0].Delta)

	got := s.TemporalChunksAtOrBefore(robotPath, frameTimeline, rrtime.TimeInt(2))
	require.Len(t, got, 1)
	assert.Equal(t, c.ID(), got[0].ID())

	assert.Empty(t, s.TemporalChunksAtOrBefore(robotPath, frameTimeline, rrtime.TimeInt(0)))
}

func TestInsertChunkRangeQuery(t *testing.T) {
	s := New(uuid.New())
	c := buildTemporalChunk(t, []int64{1, 2, 3, 10})
	_, err := s.InsertChunk(c)
	require.NoError(t, err)

	got := s.TemporalChunksInRange(robotPath, frameTimeline, rrtime.NewTimeRange(rrtime.TimeInt(1), rrtime.TimeInt(3)))
	require.Len(t, got, 1)
	assert.Equal(t, c.ID(), got[0].ID())
}

func TestStaticWinnerReplacedByGreaterRowID(t *testing.T) {
	s := New(uuid.New())
	first := buildStaticChunk(t)
	_, err := s.InsertChunk(first)
	require.NoError(t, err)

	second := buildStaticChunk(t)
	events, err := s.InsertChunk(second)
	require.NoError(t, err)

	winner, ok := s.StaticWinner(robotPath, translationDesc)
	require.True(t, ok)
	assert.Equal(t, second.ID(), winner.ID())

	var sawEviction bool
	for _, ev := range events {
		if ev.Delta == -1 && ev.ChunkID == first.ID() {
			sawEviction = true
		}
	}
	assert.True(t, sawEviction, "expected a -1 event for the dominated static chunk")
}

func TestEntityHasComponentOnTimeline(t *testing.T) {
	s := New(uuid.New())
	c := buildTemporalChunk(t, []int64{5})
	_, err := s.InsertChunk(c)
	require.NoError(t, err)

	assert.True(t, s.EntityHasComponentOnTimeline(robotPath, frameTimeline, translationDesc))

	other := rrcomponent.New("rrd.archetypes.Transform3D", "rotation", rrcomponent.TypeRotationQuat)
	assert.False(t, s.EntityHasComponentOnTimeline(robotPath, frameTimeline, other))
}

func TestSubscribersReceiveEventsInOrder(t *testing.T) {
	s := New(uuid.New())
	var seen []uint64
	s.Subscribe(func(ev ChunkStoreEvent) { seen = append(seen, ev.EventID) })

	_, err := s.InsertChunk(buildTemporalChunk(t, []int64{1}))
	require.NoError(t, err)
	_, err = s.InsertChunk(buildTemporalChunk(t, []int64{2}))
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
}

func TestRemoveChunkClearsTemporalIndex(t *testing.T) {
	s := New(uuid.New())
	c := buildTemporalChunk(t, []int64{1, 2})
	_, err := s.InsertChunk(c)
	require.NoError(t, err)

	events := s.RemoveChunk(c)
	require.NotEmpty(t, events)
	assert.Equal(t, -1, events[0].Delta)
	assert.Empty(t, s.TemporalChunksAtOrBefore(robotPath, frameTimeline, rrtime.TimeInt(2)))

	_, ok := s.Chunk(c.ID())
	assert.False(t, ok)
}
