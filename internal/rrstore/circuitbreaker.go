// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrstore

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rrdstore/internal/rrchunk"
	"github.com/tomtom215/rrdstore/internal/rrlog"
)

// IngestCircuitBreakerConfig configures the breaker guarding chunks
// submitted from an external ingest thread (spec §5: the network and
// file ingest readers run on their own threads and are the only callers
// that can hammer the store faster than a misbehaving producer should),
// mirroring the donor's eventprocessor.CircuitBreakerConfig shape.
type IngestCircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultIngestCircuitBreakerConfig trips after 5 consecutive ingest
// failures (a malformed chunk fails Normalize or Validate), stays open
// for 10s, then allows a single trial request before closing again.
func DefaultIngestCircuitBreakerConfig() IngestCircuitBreakerConfig {
	return IngestCircuitBreakerConfig{
		Name:             "chunk-store-ingest",
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// EnableIngestCircuitBreaker wraps future InsertChunkFromIngest calls in
// a circuit breaker that opens once cfg.FailureThreshold consecutive
// Normalize/Validate failures occur, shedding load from a misbehaving
// external producer rather than letting every malformed chunk walk the
// full insertion path. Calling it again replaces the previous breaker.
func (s *ChunkStore) EnableIngestCircuitBreaker(cfg IngestCircuitBreakerConfig) {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			rrlog.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("ingest circuit breaker state changed")
		},
	}

	s.coarse.Lock()
	s.ingestBreaker = gobreaker.NewCircuitBreaker[[]ChunkStoreEvent](settings)
	s.coarse.Unlock()
}

// IngestBreakerState reports the breaker's current state ("closed",
// "half-open", "open"), or "" if EnableIngestCircuitBreaker was never
// called.
func (s *ChunkStore) IngestBreakerState() string {
	s.coarse.RLock()
	cb := s.ingestBreaker
	s.coarse.RUnlock()
	if cb == nil {
		return ""
	}
	return cb.State().String()
}

// InsertChunkFromIngest is the entry point for the external ingest
// thread (spec §5). It is identical to InsertChunk except that, once
// EnableIngestCircuitBreaker has been called, each call runs through
// the breaker: once open, it fails fast with gobreaker.ErrOpenState
// instead of calling InsertChunk at all, until Timeout elapses and a
// trial request is allowed through.
func (s *ChunkStore) InsertChunkFromIngest(chunk *rrchunk.Chunk) ([]ChunkStoreEvent, error) {
	s.coarse.RLock()
	cb := s.ingestBreaker
	s.coarse.RUnlock()

	if cb == nil {
		return s.InsertChunk(chunk)
	}
	return cb.Execute(func() ([]ChunkStoreEvent, error) {
		return s.InsertChunk(chunk)
	})
}
