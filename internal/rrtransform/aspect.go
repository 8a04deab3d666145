// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrtransform

import (
	"sync"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrstore"
)

// TransformAspect is a bitflag recording which transform-relevant
// component families an entity has ever carried (spec.md §4.7: "a
// bitflag TransformAspect recording which aspects the entity
// participates in"). Resolve does not consult it: every entity on the
// chain is queried for every transform component.
type TransformAspect uint8

const (
	AspectFrame TransformAspect = 1 << iota
	AspectPose
	AspectPinholeOrViewCoordinates
	AspectClear
)

// Has reports whether flag is set.
func (a TransformAspect) Has(flag TransformAspect) bool { return a&flag != 0 }

// aspectFor classifies a component descriptor's type into the aspect it
// contributes to, or 0 if the type is irrelevant to transform
// resolution.
func aspectFor(desc rrcomponent.Descriptor) TransformAspect {
	switch desc.Type {
	case rrcomponent.TypeTranslation3D, rrcomponent.TypeRotationQuat, rrcomponent.TypeScale3D, rrcomponent.TypeTransformMat3x3, rrcomponent.TypeDisconnect:
		return AspectFrame
	case rrcomponent.TypeInstancePose:
		return AspectPose
	case rrcomponent.TypePinholeProjection, rrcomponent.TypePinholeResolution, rrcomponent.TypeViewCoordinates:
		return AspectPinholeOrViewCoordinates
	case rrcomponent.TypeClear:
		return AspectClear
	default:
		return 0
	}
}

// AspectTracker is a store subscriber maintaining each entity's
// cumulative TransformAspect bitflag, state-machine style: once an
// aspect bit is set it is never cleared, since "ever carried this kind
// of component" only grows (spec.md §4.7: "state-machine per entity...
// transitions driven by chunks touching the respective component
// sets").
type AspectTracker struct {
	mu      sync.RWMutex
	aspects map[string]TransformAspect
}

// NewAspectTracker creates an empty tracker.
func NewAspectTracker() *AspectTracker {
	return &AspectTracker{aspects: make(map[string]TransformAspect)}
}

// Attach subscribes the tracker to store's change-event bus.
func (a *AspectTracker) Attach(store *rrstore.ChunkStore) rrstore.SubscriberHandle {
	return store.Subscribe(a.handle)
}

func (a *AspectTracker) handle(ev rrstore.ChunkStoreEvent) {
	if ev.Delta <= 0 {
		return
	}
	var gained TransformAspect
	for _, desc := range ev.Components {
		gained |= aspectFor(desc)
	}
	if gained == 0 {
		return
	}
	entity := ev.EntityPath.String()
	a.mu.Lock()
	a.aspects[entity] |= gained
	a.mu.Unlock()
}

// Aspects returns the cumulative aspect bitflag for entity.
func (a *AspectTracker) Aspects(entity string) TransformAspect {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.aspects[entity]
}
