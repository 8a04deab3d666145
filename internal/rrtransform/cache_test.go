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

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

func TestTransformCacheCachesAndInvalidatesOnAncestorEvent(t *testing.T) {
	s := rrstore.New(uuid.New())
	world := rrpath.Parse("/world")
	robot := rrpath.Parse("/world/robot")

	insertStaticComponent(t, s, robot, rrcomponent.DescTranslation3D, [3]float32{1, 0, 0})

	c := NewTransformCache(s, 10)
	first := c.Resolve(world, robot, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	require.True(t, first.Ok())

	second := c.Resolve(world, robot, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	assert.Same(t, first, second, "second lookup should hit the cache and return the same pointer")

	insertStaticComponent(t, s, world, rrcomponent.DescTranslation3D, [3]float32{5, 0, 0})

	third := c.Resolve(world, robot, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	assert.NotSame(t, first, third, "an insert on an ancestor must invalidate the cached entry")
	assert.Equal(t, [3]float32{6, 0, 0}, third.AbsoluteTreeTransform.Translation)
}

func TestTransformCacheDoesNotInvalidateOnUnrelatedEntity(t *testing.T) {
	s := rrstore.New(uuid.New())
	world := rrpath.Parse("/world")
	robot := rrpath.Parse("/world/robot")
	other := rrpath.Parse("/world/other")

	c := NewTransformCache(s, 10)
	first := c.Resolve(world, robot, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})

	insertStaticComponent(t, s, other, rrcomponent.DescTranslation3D, [3]float32{9, 9, 9})

	second := c.Resolve(world, robot, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	assert.Same(t, first, second, "an insert on an unrelated entity must not invalidate the cache")
}

func TestTransformCacheEvictsLeastRecentlyUsed(t *testing.T) {
	s := rrstore.New(uuid.New())
	world := rrpath.Parse("/world")
	a := rrpath.Parse("/world/a")
	b := rrpath.Parse("/world/b")
	cEntity := rrpath.Parse("/world/c")

	cache := NewTransformCache(s, 2)
	cache.Resolve(world, a, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	cache.Resolve(world, b, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})
	cache.Resolve(world, a, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{}) // touch a, b becomes LRU
	cache.Resolve(world, cEntity, frameTimeline, rrtime.TimeIntStatic, ResolveOptions{})

	cache.mu.Lock()
	defer cache.mu.Unlock()
	_, hasA := cache.entries[walkKey{root: world.String(), entity: a.String(), timeline: frameTimeline.Name(), at: rrtime.TimeIntStatic}.String()]
	_, hasB := cache.entries[walkKey{root: world.String(), entity: b.String(), timeline: frameTimeline.Name(), at: rrtime.TimeIntStatic}.String()]
	_, hasC := cache.entries[walkKey{root: world.String(), entity: cEntity.String(), timeline: frameTimeline.Name(), at: rrtime.TimeIntStatic}.String()]
	assert.True(t, hasA)
	assert.False(t, hasB, "b should have been evicted as least recently used")
	assert.True(t, hasC)
}
