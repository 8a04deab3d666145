// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowIDMonotonic(t *testing.T) {
	var prev RowID
	for i := 0; i < 1000; i++ {
		id := NewRowID()
		if i > 0 {
			assert.True(t, id.Compare(prev) > 0, "row ids must be strictly increasing")
		}
		prev = id
	}
}

func TestRowIDMonotonicUnderClockRegression(t *testing.T) {
	// Force the generator into its regression path directly.
	g := newMonotonicGen()
	first := g.next()
	ahead := first
	ahead[0] = 0xFF // a last id far ahead of the wall clock
	g.mu.Lock()
	g.last = ahead
	g.mu.Unlock()

	second := g.next()
	require.True(t, second.Compare(ahead) > 0)
}

func TestTimeIntStaticOrdersFirst(t *testing.T) {
	assert.True(t, TimeIntStatic.Compare(TimeIntMin) < 0)
	assert.True(t, TimeIntStatic.Compare(TimeInt(0)) < 0)
	assert.True(t, TimeIntStatic.IsStatic())
	assert.False(t, TimeIntMin.IsStatic())
}

func TestTimeIntAddSaturates(t *testing.T) {
	assert.Equal(t, TimeIntMax, TimeIntMax.Add(1))
	assert.Equal(t, TimeIntMin, TimeIntMin.Add(-1))
	assert.Equal(t, TimeIntStatic, TimeIntStatic.Add(5))
	assert.Equal(t, TimeInt(10), TimeInt(5).Add(5))
}

func TestTimeIntFormat(t *testing.T) {
	assert.Equal(t, "42", TimeInt(42).Format(TimelineSequence, nil))
	assert.Equal(t, "STATIC", TimeIntStatic.Format(TimelineSequence, nil))
	assert.Equal(t, "00:00:01.500", TimeInt(1_500_000_000).Format(TimelineDuration, nil))
}

func TestTimeRangeContains(t *testing.T) {
	r := NewTimeRange(TimeInt(5), TimeInt(10))
	assert.True(t, r.Contains(TimeInt(5)))
	assert.True(t, r.Contains(TimeInt(10)))
	assert.True(t, r.Contains(TimeInt(7)))
	assert.False(t, r.Contains(TimeInt(4)))
	assert.False(t, r.Contains(TimeInt(11)))
}

func TestTimelineEqualityByName(t *testing.T) {
	a := NewTimeline("frame", TimelineSequence)
	b := NewTimeline("frame", TimelineDuration)
	assert.True(t, a.Equal(b))
}
