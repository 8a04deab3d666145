// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

// Package rrmetrics exposes Prometheus instrumentation for ingestion,
// queries, garbage collection, and cache hit rates (SPEC_FULL.md §2's
// ambient stack), grounded on the donor's internal/metrics package
// (promauto vecs registered at package init).
package rrmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChunksInserted is the counter for accepted chunks, by whether the
	// chunk was static or temporal. rrstore does not increment it.
	ChunksInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrdstore_chunks_inserted_total",
			Help: "Total number of chunks accepted by the chunk store",
		},
		[]string{"kind"}, // "static" or "temporal"
	)

	ChunksDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrdstore_chunks_dropped_total",
			Help: "Total number of chunks rejected at ingestion",
		},
		[]string{"reason"},
	)

	StoreBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rrdstore_store_bytes",
			Help: "Current in-memory byte total tracked by the chunk store",
		},
		[]string{"kind"}, // "static" or "temporal"
	)

	// QueryDuration is the histogram for LatestAt/Range query execution.
	// rrquery does not observe it.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rrdstore_query_duration_seconds",
			Help:    "Duration of latest_at/range queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // "latest_at" or "range"
	)

	// CacheHits/CacheMisses are per-cache counters, labelled by cache
	// name. None of the rrcache caches records them.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrdstore_cache_hits_total",
			Help: "Total cache hits, by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrdstore_cache_misses_total",
			Help: "Total cache misses, by cache name",
		},
		[]string{"cache"},
	)

	// GC metrics.
	GCEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rrdstore_gc_evictions_total",
			Help: "Total number of chunks evicted by the garbage collector",
		},
	)

	GCFreedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rrdstore_gc_freed_bytes_total",
			Help: "Total bytes freed by the garbage collector",
		},
	)

	GCShortfalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rrdstore_gc_shortfalls_total",
			Help: "Total number of GC sweeps that could not reach the target",
		},
	)

	GCSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rrdstore_gc_sweep_duration_seconds",
			Help:    "Duration of a full GC sweep",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
	)

	// TransformResolutions is the counter for resolver outcomes, including
	// soft failures, by reason ("ok" for a clean resolution). rrtransform
	// does not record it.
	TransformResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rrdstore_transform_resolutions_total",
			Help: "Total transform resolutions, by outcome",
		},
		[]string{"reason"},
	)
)

// RecordGCEviction records one evicted chunk freeing freedBytes.
func RecordGCEviction(freedBytes int64) {
	GCEvictions.Inc()
	if freedBytes > 0 {
		GCFreedBytes.Add(float64(freedBytes))
	}
}

// RecordGCShortfall records a sweep that ended in a reported shortfall.
func RecordGCShortfall() {
	GCShortfalls.Inc()
}
