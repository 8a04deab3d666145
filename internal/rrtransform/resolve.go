// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrtransform implements the transform resolver (spec.md
// §4.7): for any (entity_path, timeline, time), the absolute transform
// from the entity's local frame to the root frame, plus optional
// per-instance poses and pinhole projection, grounded on the
// original_source rerun transform-cache crates (re_view_spatial's
// TransformCache / UnreachableTransformReason) and adapted to this
// store's rrquery.LatestAt primitive.
package rrtransform

import (
	"fmt"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrerrors"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrquery"
	"github.com/tomtom215/rrdstore/internal/rrstore"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// InstancePoses holds independent per-instance transforms applied after
// the composed tree transform, not inherited by descendants (spec.md
// §4.7 step 4). Len reports 1 for a uniform single pose so callers
// never need to special-case it (supplemented from original_source's
// distinction between a single Instance Pose and a per-instance array).
type InstancePoses struct {
	poses []Affine3D
}

// Len returns the number of distinct per-instance poses, or 1 if a
// single uniform pose applies to every instance.
func (p InstancePoses) Len() int {
	if len(p.poses) == 0 {
		return 0
	}
	return len(p.poses)
}

// At returns the pose for instance i, broadcasting the single uniform
// pose if only one was recorded.
func (p InstancePoses) At(i int) Affine3D {
	if len(p.poses) == 1 {
		return p.poses[0]
	}
	return p.poses[i]
}

// PinholeInfo records a pinhole camera's projection at an entity, plus
// its optional resolution (needed to invert the projection outward,
// spec.md §4.7 "InversePinholeCameraWithoutResolution").
type PinholeInfo struct {
	Entity     rrpath.Path
	Projection [9]float32
	Resolution *[2]float32
	ViewCoords string
}

// Resolved is the result of one resolution call (spec.md §4.7 step 5).
type Resolved struct {
	Entity                rrpath.Path
	AbsoluteTreeTransform Affine3D
	InstancePoses         *InstancePoses
	Pinhole               *PinholeInfo
	ReasonIfUnreachable   error
}

// Ok reports whether resolution succeeded without a soft failure.
func (r *Resolved) Ok() bool { return r.ReasonIfUnreachable == nil }

// ResolveOptions modifies a single Resolve call.
type ResolveOptions struct {
	// CrossPinholeOutward requests inverting any pinhole projection
	// found at the entity itself (e.g. to map a logged 2D point back
	// into 3D world space). This is the only direction that requires a
	// recorded Resolution component.
	CrossPinholeOutward bool
}

// Resolve implements the resolution algorithm of spec.md §4.7 steps
// 1-5 for (entity, timeline, at), composing the root-to-entity tree
// transform and reporting the four soft failure modes instead of
// returning a Go error.
func Resolve(store *rrstore.ChunkStore, entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt, opts ResolveOptions) *Resolved {
	res := &Resolved{Entity: entity}

	chain := entity.Chain() // root..entity inclusive, per step 1.
	composed := IdentityAffine3D()
	var pinholesSeen int
	var lastPinhole *PinholeInfo

	for _, ancestor := range chain {
		if clearedAt(store, ancestor, timeline, at) {
			// A recursive clear resets this ancestor (and, by walking
			// further down the chain, its descendants) to Empty: treat
			// its own transform/pinhole contributions as absent for
			// queries at or after the clear time (spec.md §4.7: "a
			// recursive clear resets to Empty for the entity and all
			// descendants, at and after the clear time").
			continue
		}

		if disconnected(store, ancestor, timeline, at) {
			res.AbsoluteTreeTransform = composed
			res.ReasonIfUnreachable = fmt.Errorf("%w: at %s", rrerrors.ErrDisconnectedSpace, ancestor.String())
			return res
		}

		// Step 2: latest_at the tree-transform components and compose.
		local := localTransform(store, ancestor, timeline, at)
		parentComposed := composed
		composed = Compose(composed, local)

		// Step 3: resolve pinhole state, forbidding nesting.
		if pin, ok := pinholeAt(store, ancestor, timeline, at); ok {
			pinholesSeen++
			if pinholesSeen > 1 {
				res.AbsoluteTreeTransform = parentComposed
				res.ReasonIfUnreachable = fmt.Errorf("%w: %s and %s", rrerrors.ErrNestedPinholeCameras, lastPinhole.Entity.String(), ancestor.String())
				return res
			}
			if pin.ViewCoords != "" && !validViewCoordinates(pin.ViewCoords) {
				res.AbsoluteTreeTransform = composed
				res.ReasonIfUnreachable = fmt.Errorf("%w: %q at %s", rrerrors.ErrInvalidViewCoordinates, pin.ViewCoords, ancestor.String())
				return res
			}
			lastPinhole = pin
		}
	}

	if opts.CrossPinholeOutward && lastPinhole != nil && lastPinhole.Resolution == nil {
		res.AbsoluteTreeTransform = composed
		res.ReasonIfUnreachable = fmt.Errorf("%w: at %s", rrerrors.ErrInversePinholeWithoutResolution, lastPinhole.Entity.String())
		return res
	}

	res.AbsoluteTreeTransform = composed
	res.Pinhole = lastPinhole

	// Step 4: per-instance poses at e itself, independent of the tree
	// transform and not inherited by descendants.
	res.InstancePoses = instancePosesAt(store, entity, timeline, at)

	return res
}

func localTransform(store *rrstore.ChunkStore, entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt) Affine3D {
	t := IdentityAffine3D()
	q := LatestAt(store, timeline, at, entity, rrcomponent.DescTranslation3D)
	if vals, ok := q.Component(rrcomponent.DescTranslation3D); ok {
		t = Compose(t, TranslationAffine3D(vals.Values[0].([3]float32)))
	}
	if vals, ok := q.Component(rrcomponent.DescRotationQuat); ok {
		t = Compose(t, RotationQuatAffine3D(vals.Values[0].([4]float32)))
	}
	if vals, ok := q.Component(rrcomponent.DescScale3D); ok {
		t = Compose(t, ScaleAffine3D(vals.Values[0].([3]float32)))
	}
	if vals, ok := q.Component(rrcomponent.DescTransformMat3x3); ok {
		t = Compose(t, Mat3x3Affine3D(vals.Values[0].([9]float32)))
	}
	return t
}

// LatestAt is a thin per-component convenience wrapper over
// rrquery.LatestAt for the fixed descriptor set this resolver queries.
func LatestAt(store *rrstore.ChunkStore, timeline rrtime.Timeline, at rrtime.TimeInt, entity rrpath.Path, descs ...rrcomponent.Descriptor) *rrquery.LatestAtResults {
	return rrquery.LatestAt(store, rrquery.LatestAtQuery{Timeline: timeline, At: at}, entity, descs)
}

func clearedAt(store *rrstore.ChunkStore, entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt) bool {
	q := LatestAt(store, timeline, at, entity, rrcomponent.DescClearIsRecursive)
	obs, ok := q.Component(rrcomponent.DescClearIsRecursive)
	if !ok {
		return false
	}
	cleared, _ := obs.Values[0].(bool)
	return cleared
}

func disconnected(store *rrstore.ChunkStore, entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt) bool {
	q := LatestAt(store, timeline, at, entity, rrcomponent.DescDisconnectedSpace)
	obs, ok := q.Component(rrcomponent.DescDisconnectedSpace)
	if !ok {
		return false
	}
	yes, _ := obs.Values[0].(bool)
	return yes
}

func pinholeAt(store *rrstore.ChunkStore, entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt) (*PinholeInfo, bool) {
	q := LatestAt(store, timeline, at, entity, rrcomponent.DescPinholeProjection, rrcomponent.DescPinholeResolution, rrcomponent.DescViewCoordinates)
	proj, ok := q.Component(rrcomponent.DescPinholeProjection)
	if !ok {
		return nil, false
	}
	info := &PinholeInfo{Entity: entity, Projection: proj.Values[0].([9]float32)}
	if res, ok := q.Component(rrcomponent.DescPinholeResolution); ok {
		r := res.Values[0].([2]float32)
		info.Resolution = &r
	}
	if vc, ok := q.Component(rrcomponent.DescViewCoordinates); ok {
		info.ViewCoords, _ = vc.Values[0].(string)
	}
	return info, true
}

func instancePosesAt(store *rrstore.ChunkStore, entity rrpath.Path, timeline rrtime.Timeline, at rrtime.TimeInt) *InstancePoses {
	q := LatestAt(store, timeline, at, entity, rrcomponent.DescInstancePoses3D)
	obs, ok := q.Component(rrcomponent.DescInstancePoses3D)
	if !ok {
		return nil
	}
	poses := make([]Affine3D, 0, len(obs.Values))
	for _, v := range obs.Values {
		poses = append(poses, Mat3x3Affine3D(v.([9]float32)))
	}
	return &InstancePoses{poses: poses}
}

// validViewCoordinates accepts the canonical 3-letter axis codes (one
// of R/L, U/D, F/B per axis, each axis named exactly once), matching
// the original's ViewCoordinates enum (e.g. "RDF", "RUB", "FLU").
func validViewCoordinates(s string) bool {
	if len(s) != 3 {
		return false
	}
	axisOf := map[byte]byte{'R': 'X', 'L': 'X', 'U': 'Y', 'D': 'Y', 'F': 'Z', 'B': 'Z'}
	seen := make(map[byte]bool, 3)
	for i := 0; i < 3; i++ {
		axis, ok := axisOf[s[i]]
		if !ok || seen[axis] {
			return false
		}
		seen[axis] = true
	}
	return true
}
