// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrwire

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/tomtom215/rrdstore/internal/rrerrors"
)

// Reader parses a complete, seekable stream written by Writer: it reads
// the header first, then the trailer to locate the RrdFooter, verifies
// the CRC over every byte in between, and finally replays the message
// sequence (spec.md §4.8: "footer-with-offsets for random seek").
type Reader struct {
	Header      FileHeader
	VersionWarn bool
	Footer      RrdFooter

	data        io.ReaderAt
	messagesEnd uint64 // absolute offset where the message sequence ends (= start of RrdFooter)
}

// OpenReader parses size bytes of a complete stream available through
// data (e.g. a file or an in-memory buffer via bytes.NewReader).
func OpenReader(data io.ReaderAt, size int64) (*Reader, error) {
	if size < int64(fileHeaderSize+StreamFooterSize) {
		return nil, fmt.Errorf("%w: stream too short (%d bytes)", rrerrors.ErrHeaderCorrupt, size)
	}

	headerBuf := make([]byte, fileHeaderSize)
	if _, err := data.ReadAt(headerBuf, 0); err != nil {
		return nil, fmt.Errorf("read file header: %w", err)
	}
	header, warn, err := DecodeFileHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	sfBuf := make([]byte, StreamFooterSize)
	if _, err := data.ReadAt(sfBuf, size-int64(StreamFooterSize)); err != nil {
		return nil, fmt.Errorf("read stream footer: %w", err)
	}
	sf, err := DecodeStreamFooter(sfBuf)
	if err != nil {
		return nil, err
	}

	messagesEnd := uint64(fileHeaderSize) + sf.FooterOffset
	footerAbs := int64(messagesEnd)
	footerBuf := make([]byte, sf.FooterSize)
	if _, err := data.ReadAt(footerBuf, footerAbs); err != nil {
		return nil, fmt.Errorf("read rrd footer: %w", err)
	}
	footer, err := DecodeRrdFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	hashedLen := int64(messagesEnd) + int64(sf.FooterSize) - int64(fileHeaderSize)
	hashed := make([]byte, hashedLen)
	if _, err := data.ReadAt(hashed, int64(fileHeaderSize)); err != nil {
		return nil, fmt.Errorf("read hashed region: %w", err)
	}
	if got := crc32.ChecksumIEEE(hashed); got != sf.CRC {
		return nil, fmt.Errorf("%w: have %08x, want %08x", rrerrors.ErrFooterCRCMismatch, got, sf.CRC)
	}

	return &Reader{
		Header:      header,
		VersionWarn: warn,
		Footer:      footer,
		data:        data,
		messagesEnd: messagesEnd,
	}, nil
}

// Messages decodes and returns every message between the header and the
// RrdFooter, in stream order.
func (r *Reader) Messages() ([]Message, error) {
	span := r.messagesEnd - uint64(fileHeaderSize)
	buf := make([]byte, span)
	if _, err := r.data.ReadAt(buf, int64(fileHeaderSize)); err != nil {
		return nil, fmt.Errorf("read message region: %w", err)
	}

	var out []Message
	reader := bytes.NewReader(buf)
	for reader.Len() > 0 {
		m, err := DecodeMessage(reader, r.Header.Options)
		if err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// MessageAt decodes a single message at the given seek-index byte
// offset, without replaying the messages before it.
func (r *Reader) MessageAt(byteOffset uint64) (Message, error) {
	abs := int64(fileHeaderSize) + int64(byteOffset)
	span := r.messagesEnd - (uint64(fileHeaderSize) + byteOffset)
	buf := make([]byte, span)
	if _, err := r.data.ReadAt(buf, abs); err != nil {
		return Message{}, fmt.Errorf("seek to message at offset %d: %w", byteOffset, err)
	}
	return DecodeMessage(bytes.NewReader(buf), r.Header.Options)
}
