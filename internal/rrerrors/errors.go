// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrerrors defines the sentinel error taxonomy shared across the
// store, following the spec's error-handling design: build-time errors
// fail the caller, ingestion-time errors are warned-and-dropped, and
// transform-resolution errors are soft (reported alongside a result, not
// returned as an `error`).
package rrerrors

import "errors"

// Build-time chunk errors (spec §4.2, §7). These are returned by
// rrchunk's Builder.Build and Chunk.Validate; the store is left untouched.
var (
	ErrDuplicateRowID         = errors.New("duplicate row id")
	ErrMismatchedColumnLength = errors.New("column length does not match row count")
	ErrMixedStatic            = errors.New("index column mixes STATIC and concrete values")
)

// Ingestion-time errors (spec §7). These are warned and the offending
// chunk is dropped; the store is not poisoned.
var (
	ErrUnknownComponentType = errors.New("unknown component type")
	ErrSchemaMigrationFailed = errors.New("schema migration failed")
)

// Wire-format errors (spec §7, §4.8).
var (
	ErrIncompatibleVersion = errors.New("incompatible stream version")
	ErrHeaderCorrupt       = errors.New("corrupt stream header")
	ErrFooterCRCMismatch   = errors.New("footer crc mismatch")
)

// Transform-resolution soft errors (spec §4.7, §7). Callers receive these
// alongside a best-effort result; they are never returned from Resolve as
// a Go `error`.
var (
	ErrNestedPinholeCameras              = errors.New("nested pinhole cameras on path")
	ErrInversePinholeWithoutResolution   = errors.New("inverse pinhole crossing without resolution")
	ErrDisconnectedSpace                 = errors.New("disconnected space")
	ErrInvalidViewCoordinates            = errors.New("invalid view coordinates")
)
