// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrcomponent defines component descriptors (the archetype /
// field / type triple naming a typed column) and a small open registry
// mapping known descriptors to Arrow-backed decoders. Descriptors not in
// the registry flow through as opaque byte columns (spec §9: "dynamic
// component registry -> tagged variants + open registry").
package rrcomponent

import "fmt"

// ComponentType names the underlying value type of a component column,
// independent of which archetype/field it is attached to. Used for
// type-level fallback matching (spec §3).
type ComponentType string

// Descriptor names a typed column within an archetype. Two descriptors
// are considered the "same" for exact attribution when all three fields
// match; a query may instead fall back to matching by Type alone.
type Descriptor struct {
	Archetype string
	Field     string
	Type      ComponentType
}

// New constructs a Descriptor.
func New(archetype, field string, typ ComponentType) Descriptor {
	return Descriptor{Archetype: archetype, Field: field, Type: typ}
}

// Equal compares the full (archetype, field, type) triple.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.Archetype == o.Archetype && d.Field == o.Field && d.Type == o.Type
}

// SameType reports whether d and o share a ComponentType, regardless of
// archetype/field — the type-level fallback match from spec §3.
func (d Descriptor) SameType(o Descriptor) bool { return d.Type == o.Type }

// String renders "archetype.field#type", used as a cache/index key and
// in log fields.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s.%s#%s", d.Archetype, d.Field, d.Type)
}

// Key returns a value suitable for use as a Go map key.
func (d Descriptor) Key() string { return d.String() }
