// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrwire

import (
	"hash/crc32"
	"io"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// Writer frames a durable byte stream: a FileHeader, a sequence of
// Messages, and a RrdFooter/StreamFooter trailer built on Close (spec.md
// §4.8). Every byte after the header is hashed as it is written so
// Close can emit the CRC spec.md §6 requires without a second pass.
type Writer struct {
	out    io.Writer
	hasher io.Writer
	hash   hashState
	opts   Options
	offset uint64
	index  []MessageIndexEntry
}

// hashState wraps hash/crc32's IEEE running state so Writer can both
// write-through to out and accumulate the checksum in one pass.
type hashState struct {
	h uint32
}

func (h *hashState) Write(p []byte) (int, error) {
	h.h = crc32.Update(h.h, crc32.IEEETable, p)
	return len(p), nil
}

// NewWriter writes the FileHeader immediately and returns a Writer ready
// for WriteMessage calls.
func NewWriter(out io.Writer, opts Options) (*Writer, error) {
	if _, err := out.Write(NewFileHeader(opts).Encode()); err != nil {
		return nil, err
	}
	w := &Writer{out: out, opts: opts}
	w.hasher = io.MultiWriter(out, &w.hash)
	return w, nil
}

// WriteMessage writes m's frame. If timeRange is non-nil, the message's
// byte offset and range are recorded in the stream's seek index.
func (w *Writer) WriteMessage(m Message, timeRange *rrtime.TimeRange) error {
	encoded, err := m.Encode(w.opts)
	if err != nil {
		return err
	}
	if timeRange != nil {
		w.index = append(w.index, MessageIndexEntry{ByteOffset: w.offset, StreamTimeRange: *timeRange})
	}
	if _, err := w.hasher.Write(encoded); err != nil {
		return err
	}
	w.offset += uint64(len(encoded))
	return nil
}

// WriteSetStoreInfo is a convenience wrapper for the common first
// message of a stream.
func (w *Writer) WriteSetStoreInfo(info SetStoreInfo) error {
	m, err := EncodeSetStoreInfo(info)
	if err != nil {
		return err
	}
	return w.WriteMessage(m, nil)
}

// WriteRecordBatch frames rec as a chunk payload, recording timeRange in
// the seek index.
func (w *Writer) WriteRecordBatch(rec arrow.Record, timeRange rrtime.TimeRange) error {
	m, err := EncodeRecordBatch(rec)
	if err != nil {
		return err
	}
	return w.WriteMessage(m, &timeRange)
}

// WriteKeepAlive writes an empty keepalive frame.
func (w *Writer) WriteKeepAlive() error {
	return w.WriteMessage(Message{Kind: MessageKeepAlive}, nil)
}

// Close writes the RrdFooter followed by the StreamFooter, finalizing
// the CRC over every byte written since the header (spec.md §6).
func (w *Writer) Close() error {
	footer := RrdFooter{MessageIndex: w.index}
	footerBytes := footer.Encode()
	footerOffset := w.offset

	if _, err := w.hasher.Write(footerBytes); err != nil {
		return err
	}
	w.offset += uint64(len(footerBytes))

	sf := StreamFooter{
		CRC:          w.hash.h,
		FooterOffset: footerOffset,
		FooterSize:   uint64(len(footerBytes)),
	}
	_, err := w.out.Write(sf.Encode())
	return err
}
