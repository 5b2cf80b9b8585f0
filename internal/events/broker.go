// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

// Package events carries engine output to subscribers.
//
// In-process consumers subscribe to a typed Broker and receive values on a
// buffered channel. Slow subscribers lose messages rather than stall the
// publisher. The same events can also be published to a Watermill
// publisher (in-process GoChannel or NATS JetStream) for external consumers.
package events

import (
	"sync"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 32

// Broker fans values of one type out to subscribers.
type Broker[T any] struct {
	topic  string
	buffer int

	mu     sync.RWMutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

// NewBroker creates a broker. topic names the stream in logs and metrics.
func NewBroker[T any](topic string, buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker[T]{
		topic:  topic,
		buffer: buffer,
		subs:   make(map[uint64]chan T),
	}
}

// Topic returns the broker's topic name.
func (b *Broker[T]) Topic() string { return b.topic }

// Subscribe returns a receive channel and a cancel function. Cancel closes
// the channel; it is safe to call more than once. Subscribing to a closed
// broker returns an already-closed channel.
func (b *Broker[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers v to every subscriber without blocking and returns the
// number of subscribers that received it.
func (b *Broker[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}

	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- v:
			delivered++
		default:
			metrics.EventsDropped.WithLabelValues(b.topic).Inc()
			logging.Warn().Str("topic", b.topic).Msg("subscriber buffer full, event dropped")
		}
	}
	return delivered
}

// Subscribers returns the current subscriber count.
func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are no-ops.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
