// File: fake/backend.go
// Package fake provides a software-simulated hardware backend.
// Author: MaybeNext
// License: Apache-2.0
//
// Backend implements engine.Backend against a block of simulated card
// memory. Transfers complete asynchronously after a configurable
// latency, retiring the programmed descriptor chain segment by
// segment. Stop bumps the engine's generation counter so a halted
// transfer never delivers a late completion, which is exactly the
// race the transaction state machine must absorb.

package fake

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/MaybeNext/xadma/api"
	"github.com/MaybeNext/xadma/internal/engine"
)

// Ensure compile-time interface compliance.
var _ engine.Backend = (*Backend)(nil)

// faultAddress is the writeback fault code for an out-of-window
// device address.
const faultAddress = 0x1

// Backend simulates the DMA datapath of one card.
type Backend struct {
	// latency delays each transfer's completion, in nanoseconds.
	// Zero completes as fast as the scheduler allows.
	latency atomic.Int64

	mu  sync.Mutex
	mem []byte

	genMu sync.Mutex
	gens  map[*engine.Engine]*atomic.Uint64
}

// NewBackend creates a backend with memBytes of simulated card memory.
func NewBackend(memBytes int) *Backend {
	return &Backend{
		mem:  make([]byte, memBytes),
		gens: make(map[*engine.Engine]*atomic.Uint64),
	}
}

// Memory exposes the simulated card memory for test assertions.
func (b *Backend) Memory() []byte { return b.mem }

// SetLatency sets the completion delay for subsequent transfers. Safe
// to call while transfers are in flight.
func (b *Backend) SetLatency(d time.Duration) { b.latency.Store(int64(d)) }

func (b *Backend) gen(e *engine.Engine) *atomic.Uint64 {
	b.genMu.Lock()
	defer b.genMu.Unlock()
	g, ok := b.gens[e]
	if !ok {
		g = &atomic.Uint64{}
		b.gens[e] = g
	}
	return g
}

// Start launches the simulated transfer.
func (b *Backend) Start(e *engine.Engine, tx *engine.Transaction) error {
	g := b.gen(e)
	started := g.Load()
	go b.run(e, tx, g, started)
	return nil
}

// Stop halts the channel: any transfer started before the bump is
// dropped without a completion.
func (b *Backend) Stop(e *engine.Engine) {
	b.gen(e).Add(1)
}

func (b *Backend) run(e *engine.Engine, tx *engine.Transaction, g *atomic.Uint64, started uint64) {
	if d := time.Duration(b.latency.Load()); d > 0 {
		time.Sleep(d)
	}

	var done uint32
	var bytes uint64
	var fault uint32
	req := tx.Request()

	b.mu.Lock()
	for _, d := range tx.Descriptors() {
		if d.DevAddr+uint64(d.Len) > uint64(len(b.mem)) {
			fault = faultAddress
			break
		}
		host := req.Data[d.HostOff : d.HostOff+uint64(d.Len)]
		dev := b.mem[d.DevAddr : d.DevAddr+uint64(d.Len)]
		if tx.Dir() == api.DirH2C {
			copy(dev, host)
		} else {
			copy(host, dev)
		}
		done++
		bytes += uint64(d.Len)
	}
	b.mu.Unlock()

	if g.Load() != started {
		return // engine was stopped, drop the completion
	}
	tx.PostProgress(done, bytes, fault)
	if !e.Poll() {
		e.ServiceInterrupt()
	}
}
