// File: internal/ring/ring.go
// Package ring implements the per-engine streaming receive buffer.
// Author: MaybeNext
// License: Apache-2.0
//
// Buffer is a bounded circular byte store with atomic head/tail
// cursors, padded to prevent false sharing. The hardware receive path
// is the single producer, the engine queue worker the single consumer.
// The consumer may block up to a deadline waiting for the first byte;
// the producer never blocks and never overwrites unread data.

package ring

import (
	"sync/atomic"
	"time"

	"github.com/MaybeNext/xadma/api"
)

// Buffer is a single-producer single-consumer byte ring.
type Buffer struct {
	data []byte
	mask uint64
	head atomic.Uint64 // consumer cursor
	_    [64]byte      // padding for hot/cold separation
	tail atomic.Uint64 // producer cursor
	_    [64]byte

	notify chan struct{} // pulsed by the producer on new data
	cancel chan struct{} // pulsed to abort a blocked consumer
}

// New allocates a ring of power-of-two capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be power of two")
	}
	return &Buffer{
		data:   make([]byte, capacity),
		mask:   uint64(capacity - 1),
		notify: make(chan struct{}, 1),
		cancel: make(chan struct{}, 1),
	}
}

// Cap returns the fixed ring capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Available returns the number of unread bytes.
func (b *Buffer) Available() int {
	return int(b.tail.Load() - b.head.Load())
}

// Write appends p to the ring, truncating to the free space. It
// returns the number of bytes stored and wakes a blocked consumer.
func (b *Buffer) Write(p []byte) int {
	head := b.head.Load()
	tail := b.tail.Load()
	free := uint64(len(b.data)) - (tail - head)
	n := len(p)
	if uint64(n) > free {
		n = int(free)
	}
	if n == 0 {
		return 0
	}
	pos := int(tail & b.mask)
	first := copy(b.data[pos:], p[:n])
	copy(b.data, p[first:n])
	b.tail.Store(tail + uint64(n))

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return n
}

// ReadBytes copies up to len(dst) available bytes into dst. If the
// ring is empty it waits until the deadline for the first byte and
// returns api.ErrTimeout with zero bytes if none arrive. A Cancel
// pulse aborts the wait with api.ErrCancelled.
func (b *Buffer) ReadBytes(dst []byte, timeout time.Duration) (int, error) {
	if len(dst) == 0 {
		return 0, api.ErrInvalidParameter
	}
	if n := b.consume(dst); n > 0 {
		return n, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-b.notify:
			if n := b.consume(dst); n > 0 {
				return n, nil
			}
			// spurious or raced wake, keep waiting
		case <-b.cancel:
			return 0, api.ErrCancelled
		case <-timer.C:
			if n := b.consume(dst); n > 0 {
				return n, nil
			}
			return 0, api.ErrTimeout
		}
	}
}

// consume drains min(len(dst), available) bytes without blocking.
func (b *Buffer) consume(dst []byte) int {
	head := b.head.Load()
	tail := b.tail.Load()
	avail := tail - head
	if avail == 0 {
		return 0
	}
	n := len(dst)
	if uint64(n) > avail {
		n = int(avail)
	}
	pos := int(head & b.mask)
	first := copy(dst[:n], b.data[pos:])
	copy(dst[first:n], b.data)
	b.head.Store(head + uint64(n))
	return n
}

// Cancel wakes a blocked consumer with api.ErrCancelled. The ring
// remains usable afterwards.
func (b *Buffer) Cancel() {
	select {
	case b.cancel <- struct{}{}:
	default:
	}
}

// Reset discards buffered data and stale wake pulses. Called on
// streaming node open and close.
func (b *Buffer) Reset() {
	b.head.Store(0)
	b.tail.Store(0)
	select {
	case <-b.notify:
	default:
	}
	select {
	case <-b.cancel:
	default:
	}
}
