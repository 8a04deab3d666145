// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrtransform

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/rrdstore/internal/rrchunk"
	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrerrors"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

var frameTimeline = rrtime.NewTimeline("frame", rrtime.TimelineSequence)

func insertStaticComponent(t *testing.T, s *rrstore.ChunkStore, entity rrpath.Path, desc rrcomponent.Descriptor, val any) {
	t.Helper()
	b := rrchunk.NewBuilder(entity)
	b.AppendRow(rrtime.NewRowID(), nil, map[rrcomponent.Descriptor][]any{desc: {val}})
	c, err := b.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(c)
	require.NoError(t, err)
}

func TestResolveComposesTranslationsUpTheChain(t *testing.T) {
	s := rrstore.New(uuid.New())
	world := rrpath.Parse("/world")
	robot := rrpath.Parse("/world/robot")

	insertStaticComponent(t, s, world, rrcomponent.DescTranslation3D, [3]float32{10, 0, 0})
	insertStaticComponent(t, s, robot, rrcomponent.DescTranslation3D, [3]float32{0, 5, 0})

	res := Resolve(s, robot, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	require.True(t, res.Ok())
	assert.Equal(t, [3]float32{10, 5, 0}, res.AbsoluteTreeTransform.Translation)
}

func TestResolveMissingTransformIsIdentity(t *testing.T) {
	s := rrstore.New(uuid.New())
	res := Resolve(s, rrpath.Parse("/world/untouched"), frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	require.True(t, res.Ok())
	assert.Equal(t, IdentityAffine3D(), res.AbsoluteTreeTransform)
}

func TestResolveDetectsNestedPinholeCameras(t *testing.T) {
	s := rrstore.New(uuid.New())
	cam1 := rrpath.Parse("/world/cam1")
	cam2 := rrpath.Parse("/world/cam1/cam2")

	insertStaticComponent(t, s, cam1, rrcomponent.DescPinholeProjection, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})
	insertStaticComponent(t, s, cam2, rrcomponent.DescPinholeProjection, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})

	res := Resolve(s, cam2, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	require.False(t, res.Ok())
	assert.ErrorIs(t, res.ReasonIfUnreachable, rrerrors.ErrNestedPinholeCameras)
}

func TestResolveDetectsDisconnectedSpace(t *testing.T) {
	s := rrstore.New(uuid.New())
	robot := rrpath.Parse("/world/robot")
	insertStaticComponent(t, s, robot, rrcomponent.DescDisconnectedSpace, true)

	res := Resolve(s, robot, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	require.False(t, res.Ok())
	assert.ErrorIs(t, res.ReasonIfUnreachable, rrerrors.ErrDisconnectedSpace)
}

func TestResolveDetectsInvalidViewCoordinates(t *testing.T) {
	s := rrstore.New(uuid.New())
	cam := rrpath.Parse("/world/cam")
	insertStaticComponent(t, s, cam, rrcomponent.DescPinholeProjection, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})
	insertStaticComponent(t, s, cam, rrcomponent.DescViewCoordinates, "XXX")

	res := Resolve(s, cam, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	require.False(t, res.Ok())
	assert.ErrorIs(t, res.ReasonIfUnreachable, rrerrors.ErrInvalidViewCoordinates)
}

func TestResolveRequiresResolutionToCrossPinholeOutward(t *testing.T) {
	s := rrstore.New(uuid.New())
	cam := rrpath.Parse("/world/cam")
	insertStaticComponent(t, s, cam, rrcomponent.DescPinholeProjection, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})

	res := Resolve(s, cam, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{CrossPinholeOutward: true})
	require.False(t, res.Ok())
	assert.ErrorIs(t, res.ReasonIfUnreachable, rrerrors.ErrInversePinholeWithoutResolution)

	insertStaticComponent(t, s, cam, rrcomponent.DescPinholeResolution, [2]float32{640, 480})
	res = Resolve(s, cam, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{CrossPinholeOutward: true})
	assert.True(t, res.Ok())
}

func TestResolveRecursiveClearMasksAncestorTransform(t *testing.T) {
	s := rrstore.New(uuid.New())
	robot := rrpath.Parse("/world/robot")

	b := rrchunk.NewBuilder(robot)
	b.AppendRow(rrtime.NewRowID(),
		map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(1)},
		map[rrcomponent.Descriptor][]any{rrcomponent.DescTranslation3D: {[3]float32{1, 1, 1}}})
	c1, err := b.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(c1)
	require.NoError(t, err)

	b2 := rrchunk.NewBuilder(robot)
	b2.AppendRow(rrtime.NewRowID(),
		map[rrtime.Timeline]rrtime.TimeInt{frameTimeline: rrtime.TimeInt(2)},
		map[rrcomponent.Descriptor][]any{rrcomponent.DescClearIsRecursive: {true}})
	c2, err := b2.Build()
	require.NoError(t, err)
	_, err = s.InsertChunk(c2)
	require.NoError(t, err)

	before := Resolve(s, robot, frameTimeline, rrtime.TimeInt(1), ResolveOptions{})
	require.True(t, before.Ok())
	assert.Equal(t, [3]float32{1, 1, 1}, before.AbsoluteTreeTransform.Translation)

	after := Resolve(s, robot, frameTimeline, rrtime.TimeInt(2), ResolveOptions{})
	require.True(t, after.Ok())
	assert.Equal(t, IdentityAffine3D(), after.AbsoluteTreeTransform)
}

func TestResolveInstancePosesAppliedAfterTreeTransformNotInherited(t *testing.T) {
	s := rrstore.New(uuid.New())
	robot := rrpath.Parse("/world/robot")
	wheel := rrpath.Parse("/world/robot/wheel")

	insertStaticComponent(t, s, robot, rrcomponent.DescInstancePoses3D, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})

	res := Resolve(s, robot, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	require.NotNil(t, res.InstancePoses)
	assert.Equal(t, 1, res.InstancePoses.Len())

	childRes := Resolve(s, wheel, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	assert.Nil(t, childRes.InstancePoses, "instance poses must not be inherited by descendants")
}
