// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrtransform

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrstore"
)

func TestAspectTrackerAccumulatesAndNeverClears(t *testing.T) {
	s := rrstore.New(uuid.New())
	tracker := NewAspectTracker()
	tracker.Attach(s)

	robot := rrpath.Parse("/world/robot")
	assert.Equal(t, TransformAspect(0), tracker.Aspects(robot.String()))

	insertStaticComponent(t, s, robot, rrcomponent.DescTranslation3D, [3]float32{1, 0, 0})
	assert.True(t, tracker.Aspects(robot.String()).Has(AspectFrame))
	assert.False(t, tracker.Aspects(robot.String()).Has(AspectPinholeOrViewCoordinates))

	insertStaticComponent(t, s, robot, rrcomponent.DescPinholeProjection, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})
	assert.True(t, tracker.Aspects(robot.String()).Has(AspectFrame), "earlier aspects must not be cleared")
	assert.True(t, tracker.Aspects(robot.String()).Has(AspectPinholeOrViewCoordinates))
}

func TestAspectForClassifiesKnownTypes(t *testing.T) {
	assert.Equal(t, AspectFrame, aspectFor(rrcomponent.DescTranslation3D))
	assert.Equal(t, AspectFrame, aspectFor(rrcomponent.DescRotationQuat))
	assert.Equal(t, AspectFrame, aspectFor(rrcomponent.DescScale3D))
	assert.Equal(t, AspectFrame, aspectFor(rrcomponent.DescTransformMat3x3))
	assert.Equal(t, AspectFrame, aspectFor(rrcomponent.DescDisconnectedSpace))
	assert.Equal(t, AspectPose, aspectFor(rrcomponent.DescInstancePoses3D))
	assert.Equal(t, AspectPinholeOrViewCoordinates, aspectFor(rrcomponent.DescPinholeProjection))
	assert.Equal(t, AspectPinholeOrViewCoordinates, aspectFor(rrcomponent.DescPinholeResolution))
	assert.Equal(t, AspectPinholeOrViewCoordinates, aspectFor(rrcomponent.DescViewCoordinates))
	assert.Equal(t, AspectClear, aspectFor(rrcomponent.DescClearIsRecursive))
}
