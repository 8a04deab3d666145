// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrtime

import (
	"fmt"
	"math"
	"time"
)

// TimeInt is a 64-bit signed time value on some Timeline, with two
// reserved sentinels: STATIC (not bound to any time) and MIN/MAX
// saturating bounds. Ordering is natural integer ordering, except that
// STATIC orders before every other value on any timeline.
type TimeInt int64

const (
	// TimeIntStatic marks data not bound to any timeline; visible at
	// every time. It orders before every concrete value.
	TimeIntStatic TimeInt = math.MinInt64

	// TimeIntMin is the smallest representable concrete time.
	TimeIntMin TimeInt = math.MinInt64 + 1

	// TimeIntMax is the largest representable concrete time.
	TimeIntMax TimeInt = math.MaxInt64
)

// IsStatic reports whether t is the STATIC sentinel.
func (t TimeInt) IsStatic() bool { return t == TimeIntStatic }

// Compare returns -1, 0, or 1. STATIC compares less than every concrete
// value, including TimeIntMin.
func (t TimeInt) Compare(o TimeInt) int {
	switch {
	case t == o:
		return 0
	case t < o:
		return -1
	default:
		return 1
	}
}

// Add returns t+d saturating at TimeIntMin/TimeIntMax. Adding to STATIC
// yields STATIC.
func (t TimeInt) Add(d int64) TimeInt {
	if t.IsStatic() {
		return TimeIntStatic
	}
	sum := int64(t) + d
	// overflow checks
	if d > 0 && sum < int64(t) {
		return TimeIntMax
	}
	if d < 0 && sum > int64(t) {
		return TimeIntMin
	}
	if sum < int64(TimeIntMin) {
		return TimeIntMin
	}
	if sum > int64(TimeIntMax) {
		return TimeIntMax
	}
	return TimeInt(sum)
}

// TimelineKind classifies the axis a Timeline measures.
type TimelineKind int

const (
	// TimelineSequence is an integer tick counter.
	TimelineSequence TimelineKind = iota
	// TimelineDuration is a nanosecond offset from some epoch.
	TimelineDuration
	// TimelineTimestamp is absolute nanoseconds since the Unix epoch.
	TimelineTimestamp
)

func (k TimelineKind) String() string {
	switch k {
	case TimelineSequence:
		return "sequence"
	case TimelineDuration:
		return "duration"
	case TimelineTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Format renders t according to kind. loc is only consulted for
// TimelineTimestamp; a nil loc defaults to UTC.
func (t TimeInt) Format(kind TimelineKind, loc *time.Location) string {
	if t.IsStatic() {
		return "STATIC"
	}
	switch kind {
	case TimelineSequence:
		return fmt.Sprintf("%d", int64(t))
	case TimelineDuration:
		return formatDuration(int64(t))
	case TimelineTimestamp:
		if loc == nil {
			loc = time.UTC
		}
		return time.Unix(0, int64(t)).In(loc).Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%d", int64(t))
	}
}

func formatDuration(nanos int64) string {
	neg := nanos < 0
	if neg {
		nanos = -nanos
	}
	d := time.Duration(nanos)
	hours := int64(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int64(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int64(d / time.Second)
	d -= time.Duration(seconds) * time.Second
	millis := int64(d / time.Millisecond)
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, hours, minutes, seconds, millis)
}
