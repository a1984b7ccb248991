// File: internal/engine/perf.go
// Package engine drives per-channel DMA transactions.
// Author: MaybeNext
// License: Apache-2.0
//
// Engine performance counters behind the PerfStart/PerfGet control
// operations. Cycle figures are derived from the nominal 250 MHz
// engine clock and the 16-byte datapath width.

package engine

import (
	"sync"
	"time"

	"github.com/MaybeNext/xadma/api"
	"github.com/MaybeNext/xadma/internal/mmio"
)

const (
	clockPeriodNs = 4  // 250 MHz engine clock
	datapathBytes = 16 // 128-bit datapath
)

type perfCounters struct {
	mu        sync.Mutex
	running   bool
	started   time.Time
	dataBytes uint64
	descCount uint64
}

// StartPerf clears and restarts the performance counters.
func (e *Engine) StartPerf() {
	mmio.WriteU32(e.regs, RegPerfControl, PerfClear)
	mmio.WriteU32(e.regs, RegPerfControl, PerfRun|PerfAuto)
	e.perf.mu.Lock()
	e.perf.running = true
	e.perf.started = time.Now()
	e.perf.dataBytes = 0
	e.perf.descCount = 0
	e.perf.mu.Unlock()
}

// GetPerf returns a snapshot of the counters.
func (e *Engine) GetPerf() api.PerfData {
	e.perf.mu.Lock()
	defer e.perf.mu.Unlock()
	data := api.PerfData{
		Running:    e.perf.running,
		DataCycles: e.perf.dataBytes / datapathBytes,
		DescCount:  e.perf.descCount,
	}
	if e.perf.running {
		data.ClockCycles = uint64(time.Since(e.perf.started).Nanoseconds()) / clockPeriodNs
	}
	return data
}

// account folds a finished transaction into the counters.
func (p *perfCounters) account(tx *Transaction) {
	p.mu.Lock()
	if p.running {
		descDone, bytes, _ := tx.progress()
		p.dataBytes += bytes
		p.descCount += uint64(descDone)
	}
	p.mu.Unlock()
}
