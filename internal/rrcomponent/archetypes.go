// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrcomponent

// Well-known archetype/field descriptors consumed by the transform
// resolver (spec.md §4.7) and the end-to-end scenarios (spec.md §8).
// Producers may log these fields under different archetype names; any
// two descriptors sharing a ComponentType are still equivalent for
// SameType-based matching.
var (
	DescTranslation3D     = New("rrd.archetypes.Transform3D", "translation", TypeTranslation3D)
	DescRotationQuat      = New("rrd.archetypes.Transform3D", "rotation", TypeRotationQuat)
	DescScale3D           = New("rrd.archetypes.Transform3D", "scale", TypeScale3D)
	DescTransformMat3x3   = New("rrd.archetypes.Transform3D", "mat3x3", TypeTransformMat3x3)
	DescDisconnectedSpace = New("rrd.archetypes.DisconnectedSpace", "disconnected", TypeDisconnect)
	DescClearIsRecursive  = New("rrd.archetypes.Clear", "is_recursive", TypeClear)
	DescInstancePoses3D   = New("rrd.archetypes.InstancePoses3D", "poses", TypeInstancePose)
	DescPinholeProjection = New("rrd.archetypes.Pinhole", "image_from_camera", TypePinholeProjection)
	DescPinholeResolution = New("rrd.archetypes.Pinhole", "resolution", TypePinholeResolution)
	DescViewCoordinates   = New("rrd.archetypes.Pinhole", "view_coordinates", TypeViewCoordinates)
)
