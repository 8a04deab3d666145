// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrcomponent

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Well-known component types used by the transform resolver (spec §4.7)
// and by the end-to-end scenarios in spec §8. Any other ComponentType
// value is treated as opaque and round-trips through BinaryCodec.
const (
	TypeTranslation3D    ComponentType = "rrd.components.Translation3D"
	TypeRotationQuat     ComponentType = "rrd.components.RotationQuat"
	TypeScale3D          ComponentType = "rrd.components.Scale3D"
	TypeTransformMat3x3  ComponentType = "rrd.components.TransformMat3x3"
	TypeViewCoordinates  ComponentType = "rrd.components.ViewCoordinates"
	TypePinholeProjection ComponentType = "rrd.components.PinholeProjection"
	TypePinholeResolution ComponentType = "rrd.components.Resolution"
	TypeClear            ComponentType = "rrd.components.ClearIsRecursive"
	TypeInstancePose     ComponentType = "rrd.components.InstancePoseMat3x3"
	TypeDisconnect       ComponentType = "rrd.components.DisconnectedSpace"
	TypeString           ComponentType = "rrd.components.Utf8"
	TypeScalar           ComponentType = "rrd.components.Scalar"
	TypeOpaque           ComponentType = "rrd.components.Opaque"
)

// Codec encodes/decodes a single component value to/from its byte-column
// representation. Component cells are Arrow List<Binary> columns (see
// rrchunk); Codec is the typed layer on top of that uniform byte
// encoding (spec §9: "dynamic component registry -> tagged variants +
// open registry").
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

var registry = map[ComponentType]Codec{
	TypeTranslation3D:    vec3Codec{},
	TypeScale3D:          vec3Codec{},
	TypeRotationQuat:     vec4Codec{},
	TypeTransformMat3x3:  mat3x3Codec{},
	TypeInstancePose:     mat3x3Codec{},
	TypeViewCoordinates:  stringCodec{},
	TypePinholeProjection: mat3x3Codec{},
	TypePinholeResolution: vec2Codec{},
	TypeClear:            boolCodec{},
	TypeDisconnect:       boolCodec{},
	TypeString:           stringCodec{},
	TypeScalar:           float64Codec{},
	TypeOpaque:           binaryCodec{},
}

// Lookup returns the codec registered for typ, or the passthrough
// BinaryCodec if typ is unknown (the "open registry" fallback).
func Lookup(typ ComponentType) Codec {
	if c, ok := registry[typ]; ok {
		return c
	}
	return binaryCodec{}
}

// Register adds or replaces the codec for typ. Intended for callers that
// define their own archetypes on top of the core registry.
func Register(typ ComponentType, c Codec) { registry[typ] = c }

type binaryCodec struct{}

func (binaryCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("opaque component value must be []byte, got %T", v)
	}
	return b, nil
}
func (binaryCodec) Decode(b []byte) (any, error) { return b, nil }

type stringCodec struct{}

func (stringCodec) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("string component value must be string, got %T", v)
	}
	return []byte(s), nil
}
func (stringCodec) Decode(b []byte) (any, error) { return string(b), nil }

type boolCodec struct{}

func (boolCodec) Encode(v any) ([]byte, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("bool component value must be bool, got %T", v)
	}
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}
func (boolCodec) Decode(b []byte) (any, error) {
	return len(b) > 0 && b[0] != 0, nil
}

type float64Codec struct{}

func (float64Codec) Encode(v any) ([]byte, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("scalar component value must be float64, got %T", v)
	}
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, math.Float64bits(f))
	return out, nil
}
func (float64Codec) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("scalar component payload must be 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

type vec3Codec struct{}

func (vec3Codec) Encode(v any) ([]byte, error) {
	f, ok := v.([3]float32)
	if !ok {
		return nil, fmt.Errorf("vec3 component value must be [3]float32, got %T", v)
	}
	return encodeFloats(f[:]), nil
}
func (vec3Codec) Decode(b []byte) (any, error) {
	fs, err := decodeFloats(b, 3)
	if err != nil {
		return nil, err
	}
	return [3]float32{fs[0], fs[1], fs[2]}, nil
}

type vec2Codec struct{}

func (vec2Codec) Encode(v any) ([]byte, error) {
	f, ok := v.([2]float32)
	if !ok {
		return nil, fmt.Errorf("vec2 component value must be [2]float32, got %T", v)
	}
	return encodeFloats(f[:]), nil
}
func (vec2Codec) Decode(b []byte) (any, error) {
	fs, err := decodeFloats(b, 2)
	if err != nil {
		return nil, err
	}
	return [2]float32{fs[0], fs[1]}, nil
}

type vec4Codec struct{}

func (vec4Codec) Encode(v any) ([]byte, error) {
	f, ok := v.([4]float32)
	if !ok {
		return nil, fmt.Errorf("vec4 component value must be [4]float32, got %T", v)
	}
	return encodeFloats(f[:]), nil
}
func (vec4Codec) Decode(b []byte) (any, error) {
	fs, err := decodeFloats(b, 4)
	if err != nil {
		return nil, err
	}
	return [4]float32{fs[0], fs[1], fs[2], fs[3]}, nil
}

type mat3x3Codec struct{}

func (mat3x3Codec) Encode(v any) ([]byte, error) {
	f, ok := v.([9]float32)
	if !ok {
		return nil, fmt.Errorf("mat3x3 component value must be [9]float32, got %T", v)
	}
	return encodeFloats(f[:]), nil
}
func (mat3x3Codec) Decode(b []byte) (any, error) {
	fs, err := decodeFloats(b, 9)
	if err != nil {
		return nil, err
	}
	var out [9]float32
	copy(out[:], fs)
	return out, nil
}

func encodeFloats(fs []float32) []byte {
	out := make([]byte, 4*len(fs))
	for i, f := range fs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeFloats(b []byte, n int) ([]float32, error) {
	if len(b) != 4*n {
		return nil, fmt.Errorf("expected %d bytes, got %d", 4*n, len(b))
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
