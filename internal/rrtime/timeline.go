// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrtime

// Timeline is a named axis of time. Equality is by name only; Kind is
// carried for display purposes and is not part of identity.
type Timeline struct {
	name string
	kind TimelineKind
}

// NewTimeline constructs a Timeline with the given name and kind.
func NewTimeline(name string, kind TimelineKind) Timeline {
	return Timeline{name: name, kind: kind}
}

// LogTimeTimeline is the always-present timeline seeded into
// TimesPerTimeline at construction (spec §4.5).
var LogTimeTimeline = NewTimeline("log_time", TimelineTimestamp)

// Name returns the timeline's identity.
func (t Timeline) Name() string { return t.name }

// Kind returns the timeline's display kind.
func (t Timeline) Kind() TimelineKind { return t.kind }

// Equal compares timelines by name only.
func (t Timeline) Equal(o Timeline) bool { return t.name == o.name }

// TimeRange is a closed interval [Min, Max] with Min <= Max.
type TimeRange struct {
	Min TimeInt
	Max TimeInt
}

// NewTimeRange constructs a closed range, swapping bounds if given in
// reverse order.
func NewTimeRange(a, b TimeInt) TimeRange {
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return TimeRange{Min: a, Max: b}
}

// Contains reports whether t falls within [Min, Max], inclusive on both
// ends.
func (r TimeRange) Contains(t TimeInt) bool {
	return t.Compare(r.Min) >= 0 && t.Compare(r.Max) <= 0
}

// EverythingRange spans the full concrete time axis (excludes STATIC).
func EverythingRange() TimeRange {
	return TimeRange{Min: TimeIntMin, Max: TimeIntMax}
}
