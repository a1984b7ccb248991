// File: internal/event/event.go
// Package event implements the out-of-band hardware event wait/signal
// protocol.
// Author: MaybeNext
// License: Apache-2.0
//
// A Source is a single hardware-signaled condition with single-waiter
// semantics. Each wait clears stale pulses first, so a signal from a
// prior wait never satisfies a new one. Cancel pulses the wait
// primitive to force an immediate wake and leaves the source ready for
// the next waiter; a second concurrent waiter preempts the first the
// same way.

package event

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/MaybeNext/xadma/api"
)

// Source is one hardware event line.
type Source struct {
	id int

	waitMu sync.Mutex // held by the active waiter

	signal chan struct{} // pulsed by the interrupt path
	cancel chan struct{} // pulsed to abort the active waiter

	waiting atomic.Bool
	last    atomic.Bool // last delivered value
}

// NewSource creates the wait primitive for event line id.
func NewSource(id int) *Source {
	return &Source{
		id:     id,
		signal: make(chan struct{}, 1),
		cancel: make(chan struct{}, 1),
	}
}

// ID returns the event line identifier.
func (s *Source) ID() int { return s.id }

// Last returns the last value delivered to a waiter.
func (s *Source) Last() bool { return s.last.Load() }

// Pulse signals the event. A blocked waiter wakes; without a waiter
// the pulse is latched for the next Wait's clear step to discard.
func (s *Source) Pulse() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Cancel aborts the active waiter, if any, with api.ErrCancelled.
func (s *Source) Cancel() {
	if !s.waiting.Load() {
		return
	}
	select {
	case s.cancel <- struct{}{}:
	default:
	}
}

// Wait blocks until the event is pulsed or the timeout elapses. It
// returns (true, nil) when signaled, (false, nil) on timeout, and
// (false, api.ErrCancelled) when aborted. A concurrent second waiter
// preempts the current one before taking its place.
func (s *Source) Wait(timeout time.Duration) (bool, error) {
	s.Cancel() // preempt any waiter already parked on this source
	s.waitMu.Lock()
	defer s.waitMu.Unlock()

	// clear: a stale pulse from before this wait must not satisfy it
	select {
	case <-s.signal:
	default:
	}
	select {
	case <-s.cancel:
	default:
	}

	s.waiting.Store(true)
	defer s.waiting.Store(false)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.signal:
		s.last.Store(true)
		return true, nil
	case <-s.cancel:
		return false, api.ErrCancelled
	case <-timer.C:
		s.last.Store(false)
		return false, nil
	}
}
