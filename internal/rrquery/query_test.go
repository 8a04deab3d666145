// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrquery

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/rrdstore/internal/rrchunk"
	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

var (
	robotPath       = rrpath.Parse("/world/robot")
	translationDesc = rrcomponent.New("rrd.archetypes.Transform3D", "translation", rrcomponent.TypeTranslation3D)
	frameTimeline   = rrtime.NewTimeline("frame", rrtime.TimelineSequence)
)

func newStoreWithFrames(t *testing.T, frames []int64) *rrstore.ChunkStore {
	t.Helper()
	s := rrstore.New(uuid.New())
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
	_, err = s.InsertChunk(c)
	require.NoError(t, err)
	return s
}

func TestLatestAtReturnsValueAtOrBeforeQuery(t *testing.T) {
	s := newStoreWithFrames(t, []int64{1, 5, 10})

	res := LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(7)}, robotPath, []rrcomponent.Descriptor{translationDesc})
	obs, ok := res.Component(translationDesc)
	require.True(t, ok)
	assert.Equal(t, rrtime.TimeInt(5), obs.Time)
	assert.Equal(t, [3]float32{5, 0, 0}, obs.Values[0])
}

func TestLatestAtBeforeAnyDataIsAbsent(t *testing.T) {
	s := newStoreWithFrames(t, []int64{5, 10})
	res := LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(1)}, robotPath, []rrcomponent.Descriptor{translationDesc})
	_, ok := res.Component(translationDesc)
	assert.False(t, ok)
}

func TestLatestAtFallsBackToStaticWhenNoTemporalValue(t *testing.T) {
	s := rrstore.New(uuid.New())
	b := rrchunk.NewBuilder(robotPath)
	b.AppendRow(rrtime.NewRowID(), nil, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{1, 1, 1}}})
	c, err := b.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(c)
	require.NoError(t, err)

	res := LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(100)}, robotPath, []rrcomponent.Descriptor{translationDesc})
	obs, ok := res.Component(translationDesc)
	require.True(t, ok)
	assert.True(t, obs.Time.IsStatic())
	assert.Equal(t, [3]float32{1, 1, 1}, obs.Values[0])
}

func TestLatestAtPrefersTemporalOverStatic(t *testing.T) {
	s := rrstore.New(uuid.New())

	staticB := rrchunk.NewBuilder(robotPath)
	staticB.AppendRow(rrtime.NewRowID(), nil, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{0, 0, 0}}})
	staticChunk, err := staticB.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(staticChunk)
	require.NoError(t, err)

	temporalB := rrchunk.NewBuilder(robotPath)
	temporalB.AppendRow(rrtime.NewRowID(), map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(3)}, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{3, 3, 3}}})
	temporalChunk, err := temporalB.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(temporalChunk)
	require.NoError(t, err)

	res := LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(5)}, robotPath, []rrcomponent.Descriptor{translationDesc})
	obs, ok := res.Component(translationDesc)
	require.True(t, ok)
	assert.False(t, obs.Time.IsStatic())
	assert.Equal(t, [3]float32{3, 3, 3}, obs.Values[0])
}

func TestRangeReturnsAscendingDedupedObservations(t *testing.T) {
	s := newStoreWithFrames(t, []int64{1, 5, 10, 20})
	res := Range(s, RangeQuery{Timeline: frameTimeline, Range: rrtime.NewTimeRange(rrtime.TimeInt(2), rrtime.TimeInt(15))}, robotPath, []rrcomponent.Descriptor{translationDesc})
	obs := res.Component(translationDesc)
	require.Len(t, obs, 2)
	assert.Equal(t, rrtime.TimeInt(5), obs[0].Time)
	assert.Equal(t, rrtime.TimeInt(10), obs[1].Time)
}

func TestRangeEmitsStaticFirst(t *testing.T) {
	s := rrstore.New(uuid.New())

	staticB := rrchunk.NewBuilder(robotPath)
	staticB.AppendRow(rrtime.NewRowID(), nil, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{9, 9, 9}}})
	staticChunk, err := staticB.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(staticChunk)
	require.NoError(t, err)

	temporalB := rrchunk.NewBuilder(robotPath)
	temporalB.AppendRow(rrtime.NewRowID(), map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(3)}, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{3, 3, 3}}})
	temporalChunk, err := temporalB.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(temporalChunk)
	require.NoError(t, err)

	res := Range(s, RangeQuery{Timeline: frameTimeline, Range: rrtime.NewTimeRange(rrtime.TimeInt(0), rrtime.TimeInt(10))}, robotPath, []rrcomponent.Descriptor{translationDesc})
	obs := res.Component(translationDesc)
	require.Len(t, obs, 2)
	assert.True(t, obs[0].Time.IsStatic())
	assert.Equal(t, rrtime.TimeInt(3), obs[1].Time)
}

// TestLatestAtRecursiveClearMasksDescendantThenReintroduces implements
// spec §8 scenario S4: a recursive clear on an ancestor erases a
// descendant's component until a later write reintroduces it.
func TestLatestAtRecursiveClearMasksDescendantThenReintroduces(t *testing.T) {
	s := rrstore.New(uuid.New())
	parent := rrpath.Parse("/parent")
	child := rrpath.Parse("/parent/child")

	insertC := rrchunk.NewBuilder(child)
	insertC.AppendRow(rrtime.NewRowID(), map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(1)}, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{1, 1, 1}}})
	chunk1, err := insertC.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(chunk1)
	require.NoError(t, err)

	clearB := rrchunk.NewBuilder(parent)
	clearB.AppendRow(rrtime.NewRowID(), map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(2)}, map[rrcomponent.Descriptor][]any{rrcomponent.DescClearIsRecursive: {true}})
	clearChunk, err := clearB.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(clearChunk)
	require.NoError(t, err)

	res := LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(3)}, child, []rrcomponent.Descriptor{translationDesc})
	_, ok := res.Component(translationDesc)
	assert.False(t, ok, "recursive clear on an ancestor must mask the descendant's component")

	reintroB := rrchunk.NewBuilder(child)
	reintroB.AppendRow(rrtime.NewRowID(), map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(4)}, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{4, 4, 4}}})
	chunk4, err := reintroB.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(chunk4)
	require.NoError(t, err)

	res = LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(4)}, child, []rrcomponent.Descriptor{translationDesc})
	obs, ok := res.Component(translationDesc)
	require.True(t, ok, "a later write must reintroduce the component")
	assert.Equal(t, [3]float32{4, 4, 4}, obs.Values[0])
}

// TestLatestAtNonRecursiveClearDoesNotMaskDescendant confirms a clear
// without the recursive flag only masks the entity it is logged on, not
// its descendants.
func TestLatestAtNonRecursiveClearDoesNotMaskDescendant(t *testing.T) {
	s := newStoreWithFrames(t, []int64{1})

	clearB := rrchunk.NewBuilder(robotPath)
	clearB.AppendRow(rrtime.NewRowID(), map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(2)}, map[rrcomponent.Descriptor][]any{rrcomponent.DescClearIsRecursive: {false}})
	clearChunk, err := clearB.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(clearChunk)
	require.NoError(t, err)

	child := rrpath.Parse("/world/robot/arm")
	childB := rrchunk.NewBuilder(child)
	childB.AppendRow(rrtime.NewRowID(), map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(1)}, map[rrcomponent.Descriptor][]any{translationDesc: {[3]float32{1, 2, 3}}})
	childChunk, err := childB.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(childChunk)
	require.NoError(t, err)

	res := LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(3)}, child, []rrcomponent.Descriptor{translationDesc})
	obs, ok := res.Component(translationDesc)
	require.True(t, ok, "a non-recursive clear must not mask a descendant entity")
	assert.Equal(t, [3]float32{1, 2, 3}, obs.Values[0])

	res = LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(3)}, robotPath, []rrcomponent.Descriptor{translationDesc})
	_, ok = res.Component(translationDesc)
	assert.False(t, ok, "the non-recursive clear must still mask the entity it was logged on")
}

func TestQueriesNeverFailOnUnknownEntityOrEmptyComponents(t *testing.T) {
	s := rrstore.New(uuid.New())
	res := LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(1)}, rrpath.Parse("/nope"), []rrcomponent.Descriptor{translationDesc})
	_, ok := res.Component(translationDesc)
	assert.False(t, ok)

	empty := LatestAt(s, LatestAtQuery{Timeline: frameTimeline, At: rrtime.TimeInt(1)}, robotPath, nil)
	_, ok = empty.Component(translationDesc)
	assert.False(t, ok)
}
