// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/tomtom215/rrdstore/internal/rrerrors"
)

// MessageKind is the one-byte tag opening every Message (spec.md §6).
type MessageKind uint8

const (
	MessageKeepAlive    MessageKind = 0x00
	MessageRecordBatch  MessageKind = 0x01
	MessageSetStoreInfo MessageKind = 0x02
)

// SetStoreInfo is the control-message payload opening a stream,
// identifying the recording it carries (spec.md §4.8: "Messages carry
// either a SetStoreInfo record or a Chunk in record-batch form").
// Encoded as JSON via goccy/go-json, matching the donor's universal
// swap-in of that library for encoding/json (SPEC_FULL.md §4.9).
type SetStoreInfo struct {
	RecordingID string `json:"recording_id"`
	StoreName   string `json:"store_name,omitempty"`
}

// Message is one framed unit of a stream. Payload holds the kind's raw
// encoded bytes: an Arrow IPC-stream-encoded record batch for
// MessageRecordBatch, JSON for MessageSetStoreInfo, or nothing for
// MessageKeepAlive.
type Message struct {
	Kind    MessageKind
	Payload []byte
}

// a uint32 little-endian payload length follows the kind byte so a
// reader can skip or buffer a message without decoding its payload;
// the spec names the {MessageHeader, Payload} shape but leaves framing
// of the payload's own length to the implementation.
const messagePrefixSize = 1 + 4

// Encode serializes m's frame: kind byte, little-endian uint32 length,
// payload bytes. If opts has compression enabled, the payload is
// zstd-compressed before framing.
func (m Message) Encode(opts Options) ([]byte, error) {
	payload := m.Payload
	if opts.HasCompression() && len(payload) > 0 {
		compressed, err := compressZstd(payload)
		if err != nil {
			return nil, fmt.Errorf("compress message payload: %w", err)
		}
		payload = compressed
	}
	buf := make([]byte, messagePrefixSize+len(payload))
	buf[0] = byte(m.Kind)
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf, nil
}

// DecodeMessage reads one frame from r, decompressing its payload if
// opts has compression enabled.
func DecodeMessage(r io.Reader, opts Options) (Message, error) {
	var prefix [messagePrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Message{}, err // io.EOF at a frame boundary is the normal end-of-stream signal.
	}
	kind := MessageKind(prefix[0])
	length := binary.LittleEndian.Uint32(prefix[1:5])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, fmt.Errorf("%w: truncated message payload: %v", rrerrors.ErrHeaderCorrupt, err)
	}
	if opts.HasCompression() && len(payload) > 0 {
		decompressed, err := decompressZstd(payload)
		if err != nil {
			return Message{}, fmt.Errorf("decompress message payload: %w", err)
		}
		payload = decompressed
	}
	return Message{Kind: kind, Payload: payload}, nil
}

// EncodeSetStoreInfo builds the MessageSetStoreInfo frame for info.
func EncodeSetStoreInfo(info SetStoreInfo) (Message, error) {
	b, err := json.Marshal(info)
	if err != nil {
		return Message{}, fmt.Errorf("marshal set_store_info: %w", err)
	}
	return Message{Kind: MessageSetStoreInfo, Payload: b}, nil
}

// DecodeSetStoreInfo parses a MessageSetStoreInfo payload.
func DecodeSetStoreInfo(m Message) (SetStoreInfo, error) {
	var info SetStoreInfo
	if m.Kind != MessageSetStoreInfo {
		return info, fmt.Errorf("not a set_store_info message: kind %d", m.Kind)
	}
	if err := json.Unmarshal(m.Payload, &info); err != nil {
		return info, fmt.Errorf("unmarshal set_store_info: %w", err)
	}
	return info, nil
}

// EncodeRecordBatch frames an Arrow record (a chunk's ToRecordBatch
// output) using the Arrow IPC stream format (spec.md §4.8: "Payloads
// that are record batches are the framed columnar representation of a
// chunk").
func EncodeRecordBatch(rec arrow.Record) (Message, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()))
	if err := w.Write(rec); err != nil {
		return Message{}, fmt.Errorf("write ipc record batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return Message{}, fmt.Errorf("close ipc writer: %w", err)
	}
	return Message{Kind: MessageRecordBatch, Payload: buf.Bytes()}, nil
}

// DecodeRecordBatch materializes the single Arrow record carried by an
// Arrow IPC-stream-encoded MessageRecordBatch payload. The caller owns
// the returned record and must Release it.
func DecodeRecordBatch(m Message) (arrow.Record, error) {
	if m.Kind != MessageRecordBatch {
		return nil, fmt.Errorf("not a record_batch message: kind %d", m.Kind)
	}
	r, err := ipc.NewReader(bytes.NewReader(m.Payload))
	if err != nil {
		return nil, fmt.Errorf("open ipc reader: %w", err)
	}
	defer r.Release()
	if !r.Next() {
		return nil, fmt.Errorf("ipc stream carried no record: %w", r.Err())
	}
	rec := r.Record()
	rec.Retain()
	return rec, nil
}

func compressZstd(b []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(b, nil), nil
}

func decompressZstd(b []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(b, nil)
}
