// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrstore

import (
	"sync"
	"sync/atomic"

	"github.com/tomtom215/rrdstore/internal/rrcomponent"
	"github.com/tomtom215/rrdstore/internal/rrpath"
	"github.com/tomtom215/rrdstore/internal/rrtime"
)

// ChunkStoreEvent is emitted on every insert or eviction: the chunk
// reference, a +1/-1 delta, and, for a temporal chunk, one timeline
// with the time of every row written or removed on it, repeated when
// several rows share a time (spec §3 "Change event"). Subscribers see events strictly in emission
// order; there is no replay for late attachers (spec §4.5: "attach
// before first write").
type ChunkStoreEvent struct {
	EventID    uint64
	ChunkID    rrtime.ChunkID
	EntityPath rrpath.Path
	Delta      int
	Components []rrcomponent.Descriptor
	Times      map[string][]rrtime.TimeInt // timeline name -> time of each touched row
}

// SubscriberFunc handles a single ChunkStoreEvent. Handlers run
// synchronously on the goroutine that triggered the mutation (insert
// or gc); a slow handler slows down ingestion, by design (spec: caches
// are subscribers of the same bus, and must observe every event to
// stay correct).
type SubscriberFunc func(ChunkStoreEvent)

// SubscriberHandle identifies a registered subscriber for Unsubscribe.
type SubscriberHandle uint64

type eventBus struct {
	mu          sync.Mutex
	nextEventID uint64
	nextSubID   uint64
	subscribers map[SubscriberHandle]SubscriberFunc
	order       []SubscriberHandle
}

func newEventBus() *eventBus {
	return &eventBus{subscribers: make(map[SubscriberHandle]SubscriberFunc)}
}

// subscribe registers fn and returns its handle. Registration order is
// preserved for dispatch (spec: subscribers observe events "in the
// order they were emitted", which this applies to per-subscriber
// invocation order as well).
func (b *eventBus) subscribe(fn SubscriberFunc) SubscriberHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	h := SubscriberHandle(b.nextSubID)
	b.subscribers[h] = fn
	b.order = append(b.order, h)
	return h
}

func (b *eventBus) unsubscribe(h SubscriberHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, h)
	for i, oh := range b.order {
		if oh == h {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// emit assigns the next event id and dispatches ev to every subscriber
// in registration order, synchronously.
func (b *eventBus) emit(ev ChunkStoreEvent) ChunkStoreEvent {
	b.mu.Lock()
	b.nextEventID++
	ev.EventID = b.nextEventID
	handlers := make([]SubscriberFunc, 0, len(b.order))
	for _, h := range b.order {
		handlers = append(handlers, b.subscribers[h])
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return ev
}

func (b *eventBus) currentEventID() uint64 {
	return atomic.LoadUint64(&b.nextEventID)
}
