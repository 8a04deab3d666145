// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrwire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/tomtom215/rrdstore/internal/rrerrors"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// MessageIndexEntry is one seek point: the byte offset of a message
// within the stream, and the timeline range its payload covers (spec.md
// §4.8: "message_index: [(byte_offset, stream_time_range)]").
type MessageIndexEntry struct {
	ByteOffset      uint64
	StreamTimeRange rrtime.TimeRange
}

// RrdFooter is the random-seek index written once, at the end of the
// stream.
type RrdFooter struct {
	MessageIndex []MessageIndexEntry
}

// Encode serializes the footer: a uint32 entry count, then each entry as
// {byte_offset uint64, min int64, max int64}, all little-endian.
func (f RrdFooter) Encode() []byte {
	const entrySize = 8 + 8 + 8
	buf := make([]byte, 4+entrySize*len(f.MessageIndex))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(f.MessageIndex)))
	off := 4
	for _, e := range f.MessageIndex {
		binary.LittleEndian.PutUint64(buf[off:off+8], e.ByteOffset)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(int64(e.StreamTimeRange.Min)))
		binary.LittleEndian.PutUint64(buf[off+16:off+24], uint64(int64(e.StreamTimeRange.Max)))
		off += entrySize
	}
	return buf
}

// DecodeRrdFooter parses a footer previously produced by Encode.
func DecodeRrdFooter(buf []byte) (RrdFooter, error) {
	if len(buf) < 4 {
		return RrdFooter{}, fmt.Errorf("%w: rrd footer too short", rrerrors.ErrHeaderCorrupt)
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	const entrySize = 8 + 8 + 8
	want := 4 + int(count)*entrySize
	if len(buf) < want {
		return RrdFooter{}, fmt.Errorf("%w: rrd footer truncated (have %d, want %d)", rrerrors.ErrHeaderCorrupt, len(buf), want)
	}
	entries := make([]MessageIndexEntry, count)
	off := 4
	for i := range entries {
		byteOffset := binary.LittleEndian.Uint64(buf[off : off+8])
		min := rrtime.TimeInt(int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])))
		max := rrtime.TimeInt(int64(binary.LittleEndian.Uint64(buf[off+16 : off+24])))
		entries[i] = MessageIndexEntry{ByteOffset: byteOffset, StreamTimeRange: rrtime.TimeRange{Min: min, Max: max}}
		off += entrySize
	}
	return RrdFooter{MessageIndex: entries}, nil
}

// StreamFooter is the fixed-size trailer closing the stream (spec.md
// §4.8/§6): "Footer offsets are little-endian unsigned 64-bit integers.
// CRC is of all bytes after the header up to (but excluding) the
// stream-footer itself."
type StreamFooter struct {
	CRC          uint32
	FooterOffset uint64
	FooterSize   uint64
}

const StreamFooterSize = 4 + 8 + 8

// Encode serializes the fixed-size stream footer.
func (f StreamFooter) Encode() []byte {
	buf := make([]byte, StreamFooterSize)
	binary.LittleEndian.PutUint32(buf[0:4], f.CRC)
	binary.LittleEndian.PutUint64(buf[4:12], f.FooterOffset)
	binary.LittleEndian.PutUint64(buf[12:20], f.FooterSize)
	return buf
}

// DecodeStreamFooter parses the fixed-size trailer.
func DecodeStreamFooter(buf []byte) (StreamFooter, error) {
	if len(buf) != StreamFooterSize {
		return StreamFooter{}, fmt.Errorf("%w: stream footer wrong size (%d, want %d)", rrerrors.ErrHeaderCorrupt, len(buf), StreamFooterSize)
	}
	return StreamFooter{
		CRC:          binary.LittleEndian.Uint32(buf[0:4]),
		FooterOffset: binary.LittleEndian.Uint64(buf[4:12]),
		FooterSize:   binary.LittleEndian.Uint64(buf[12:20]),
	}, nil
}

// CRC32 computes the IEEE CRC32 of b (spec.md §6: "CRC of all bytes
// after the header up to (but excluding) the stream-footer itself").
func CRC32(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
