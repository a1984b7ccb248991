// File: control/options.go
// Package control holds runtime-tunable device options.
// Author: MaybeNext
// License: Apache-2.0
//
// Store is a thread-safe options holder with atomic snapshots and
// reload listeners. Timeouts and poll settings are read per operation
// from the current snapshot, so updates take effect on the next request
// without restarting the device.

package control

import (
	"sync"
	"time"
)

// Options are the tunable parameters of one device instance.
type Options struct {
	// RingCapacity is the per-streaming-engine receive ring size in
	// bytes. Must be a power of two.
	RingCapacity int
	// StreamTimeout bounds a streaming read waiting for the first byte.
	StreamTimeout time.Duration
	// EventTimeout bounds an event-node read waiting for a signal.
	EventTimeout time.Duration
	// PollInterval is the status check period in poll mode.
	PollInterval time.Duration
	// PollMode selects polled completion for all engines; interrupt
	// completion otherwise.
	PollMode bool
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		RingCapacity:  1 << 20,          // 1 MiB receive ring
		StreamTimeout: 3 * time.Second,  // reference ring-read bound
		EventTimeout:  3 * time.Second,  // reference event-wait bound
		PollInterval:  50 * time.Microsecond,
		PollMode:      false,
	}
}

// Store is a dynamic options holder with listener support.
type Store struct {
	mu        sync.RWMutex
	opts      Options
	listeners []func(Options)
}

// NewStore initializes a store with the given options, falling back to
// defaults for zero-valued fields.
func NewStore(opts Options) *Store {
	def := DefaultOptions()
	if opts.RingCapacity <= 0 {
		opts.RingCapacity = def.RingCapacity
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = def.StreamTimeout
	}
	if opts.EventTimeout <= 0 {
		opts.EventTimeout = def.EventTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	return &Store{opts: opts}
}

// Snapshot returns a copy of the current options.
func (s *Store) Snapshot() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Update replaces the options and dispatches reload listeners.
func (s *Store) Update(opts Options) {
	s.mu.Lock()
	s.opts = opts
	listeners := s.listeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(opts)
	}
}

// OnReload registers a listener invoked after every Update.
func (s *Store) OnReload(fn func(Options)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
