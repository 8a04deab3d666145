// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrwire implements the durable byte-stream framing (spec.md
// §4.8, §6): a FileHeader, a sequence of typed Messages, and a
// RrdFooter/StreamFooter pair enabling random seek by byte offset.
package rrwire

import (
	"fmt"

	"github.com/tomtom215/rrdstore/internal/rrerrors"
)

// FourCC is the magic 4 bytes opening every stream.
const FourCC = "RRF0"

// Version is this implementation's stream version (major.minor.patch.build).
var Version = [4]byte{0, 23, 0, 0}

// minSupportedMinor is the oldest minor version (within major 0) this
// reader accepts without warning (spec.md §4.8: "rejects streams with
// major=0 && minor<23").
const minSupportedMinor = 23

// Options is the 1-byte options flags field (spec.md §6: "bit 0:
// compression on, bits 1-3: serializer variant; others reserved").
type Options uint8

const (
	OptCompression Options = 1 << 0
)

func (o Options) HasCompression() bool { return o&OptCompression != 0 }

// SerializerVariant extracts bits 1-3.
func (o Options) SerializerVariant() uint8 { return uint8(o>>1) & 0b111 }

// WithSerializerVariant returns o with bits 1-3 set to v (0-7).
func (o Options) WithSerializerVariant(v uint8) Options {
	return (o &^ (0b111 << 1)) | Options(v&0b111)<<1
}

// FileHeader opens every stream.
type FileHeader struct {
	FourCC  [4]byte
	Version [4]byte
	Options Options
}

// NewFileHeader builds a header using this implementation's version.
func NewFileHeader(opts Options) FileHeader {
	h := FileHeader{Version: Version, Options: opts}
	copy(h.FourCC[:], FourCC)
	return h
}

const fileHeaderSize = 4 + 4 + 1

// Encode writes the header's 9 bytes.
func (h FileHeader) Encode() []byte {
	buf := make([]byte, fileHeaderSize)
	copy(buf[0:4], h.FourCC[:])
	copy(buf[4:8], h.Version[:])
	buf[8] = byte(h.Options)
	return buf
}

// DecodeFileHeader parses and version-checks a header (spec.md §4.8:
// "rejects streams with major=0 && minor<23; accepts strictly newer
// minor versions with a warning").
func DecodeFileHeader(buf []byte) (FileHeader, bool, error) {
	var h FileHeader
	if len(buf) < fileHeaderSize {
		return h, false, fmt.Errorf("%w: short header (%d bytes)", rrerrors.ErrHeaderCorrupt, len(buf))
	}
	copy(h.FourCC[:], buf[0:4])
	if string(h.FourCC[:]) != FourCC {
		return h, false, fmt.Errorf("%w: bad magic %q", rrerrors.ErrHeaderCorrupt, h.FourCC)
	}
	copy(h.Version[:], buf[4:8])
	h.Options = Options(buf[8])

	major, minor := h.Version[0], h.Version[1]
	if major != 0 {
		// Forward compatibility for major lines beyond 0 is a soft-warn,
		// not a rejection.
		return h, true, nil
	}
	if minor < minSupportedMinor {
		return h, false, fmt.Errorf("%w: stream version 0.%d < minimum 0.%d", rrerrors.ErrIncompatibleVersion, minor, minSupportedMinor)
	}
	warn := minor > minSupportedMinor
	return h, warn, nil
}
