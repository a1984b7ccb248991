// File: internal/engine/engine.go
// Package engine drives per-channel DMA transactions.
// Author: MaybeNext
// License: Apache-2.0
//
// Engine owns one hardware DMA channel: it programs descriptor chains,
// starts transfers through a Backend, and finalizes them through
// either the poll loop or the interrupt service path. At most one
// transaction is live per engine; the per-engine dispatch queue
// serializes submissions and the transaction slot rejects anything
// that slips past it.

package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MaybeNext/xadma/api"
	"github.com/MaybeNext/xadma/internal/mmio"
	"github.com/MaybeNext/xadma/internal/ring"
	"github.com/MaybeNext/xadma/pool"
)

// Backend starts and stops transfers on real or simulated hardware.
// Completion is delivered by posting progress to the transaction and,
// in interrupt mode, calling Engine.ServiceInterrupt.
type Backend interface {
	// Start begins the programmed transfer. An error means hardware
	// never started; the engine fails the transaction.
	Start(e *Engine, tx *Transaction) error
	// Stop halts the channel. A transfer aborted by Stop must not
	// deliver a completion afterwards.
	Stop(e *Engine)
}

// Config describes one hardware channel.
type Config struct {
	Dir     api.Direction
	Channel int
	Mode    api.EngineMode
	Enabled bool
	// Regs is the engine's register block within the config BAR.
	Regs []byte
	// Backend runs the transfers.
	Backend Backend
	// RingCapacity sizes the receive ring of streaming C2H engines.
	RingCapacity int
	// PollInterval is the status check period in poll mode.
	PollInterval time.Duration
}

// Engine represents one DMA channel.
type Engine struct {
	dir     api.Direction
	channel int
	mode    api.EngineMode
	enabled bool
	regs    []byte
	backend Backend

	poll         atomic.Bool
	pollInterval time.Duration

	cur      atomic.Pointer[Transaction]
	descPool *pool.SyncPool[*[]Descriptor]

	rx *ring.Buffer // streaming C2H receive ring, nil otherwise

	perf perfCounters
}

// New builds an engine over its register block.
func New(cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Microsecond
	}
	e := &Engine{
		dir:          cfg.Dir,
		channel:      cfg.Channel,
		mode:         cfg.Mode,
		enabled:      cfg.Enabled,
		regs:         cfg.Regs,
		backend:      cfg.Backend,
		pollInterval: cfg.PollInterval,
		descPool: pool.NewSyncPool(func() *[]Descriptor {
			s := make([]Descriptor, 0, 16)
			return &s
		}),
	}
	if cfg.Mode == api.ModeStreaming && cfg.Dir == api.DirC2H {
		capacity := cfg.RingCapacity
		if capacity <= 0 {
			capacity = 1 << 20
		}
		e.rx = ring.New(capacity)
	}
	return e
}

func (e *Engine) Dir() api.Direction   { return e.dir }
func (e *Engine) Channel() int         { return e.channel }
func (e *Engine) Mode() api.EngineMode { return e.mode }
func (e *Engine) Enabled() bool        { return e.enabled }
func (e *Engine) Name() string         { return fmt.Sprintf("%s_%d", e.dir, e.channel) }

// Ring returns the streaming receive ring, nil for standard engines.
func (e *Engine) Ring() *ring.Buffer { return e.rx }

// Poll reports whether the engine completes transfers by polling.
func (e *Engine) Poll() bool { return e.poll.Load() }

// SetPoll selects polled or interrupt-driven completion. Applied
// uniformly at node open time.
func (e *Engine) SetPoll(poll bool) {
	e.poll.Store(poll)
	if poll {
		e.DisableInterrupt()
	} else {
		e.EnableInterrupt()
	}
}

// Submit runs one transfer for req on this engine. Every terminal
// path completes the request exactly once; the returned error mirrors
// fail-fast outcomes for the dispatch layer's logging.
func (e *Engine) Submit(req *api.Request) error {
	if !e.enabled {
		err := fmt.Errorf("%s not enabled in DMA core: %w", e.Name(), api.ErrDeviceNotReady)
		req.Complete(0, err)
		return err
	}

	tx, err := e.initTransaction(req)
	if err != nil {
		// initialization failed, hardware never started
		req.Complete(0, err)
		return err
	}

	// register the cancel hook before execution so a cancel racing the
	// submission window is never lost
	req.MarkCancelable(func(*api.Request) { e.cancelTransaction(tx) })

	if err := e.execute(tx); err != nil {
		return err
	}

	if e.poll.Load() {
		e.pollTransfer(tx)
	}
	return nil
}

// initTransaction programs descriptors and claims the transaction
// slot. On failure nothing is left allocated.
func (e *Engine) initTransaction(req *api.Request) (*Transaction, error) {
	descsp := e.descPool.Get()
	descs, err := buildDescriptors(*descsp, req.Len(), req.Offset, e.dir)
	if err != nil {
		*descsp = descs
		e.descPool.Put(descsp)
		return nil, fmt.Errorf("%s descriptor setup, length %d: %w", e.Name(), req.Len(), err)
	}
	*descsp = descs

	tx := &Transaction{engine: e, req: req, dir: e.dir, descs: descs}
	tx.state.Store(int32(api.TxInitialized))

	if !e.cur.CompareAndSwap(nil, tx) {
		e.descPool.Put(descsp)
		return nil, fmt.Errorf("%s transaction already in flight: %w", e.Name(), api.ErrDeviceNotReady)
	}
	return tx, nil
}

// execute hands the transaction to hardware.
func (e *Engine) execute(tx *Transaction) error {
	tx.state.Store(int32(api.TxExecuting))
	e.ctrlSet(CtrlRun)

	if err := e.backend.Start(e, tx); err != nil {
		err = fmt.Errorf("%s execute: %w", e.Name(), err)
		e.finish(tx, api.TxFailed, 0, err)
		return err
	}
	return nil
}

// finish performs the terminal transition. Only the winner of the
// Executing -> state race releases resources and completes the
// request; losers return false and must not touch the transaction.
func (e *Engine) finish(tx *Transaction, state api.TxState, n int, err error) bool {
	if !tx.terminal(state) {
		return false
	}
	e.ctrlClear(CtrlRun)
	e.release(tx, true)
	tx.req.UnmarkCancelable()
	e.perf.account(tx)
	tx.req.Complete(n, err)
	return true
}

// cancelTransaction aborts an executing transfer: stop hardware,
// release exactly once, complete with a cancelled outcome. If the
// completion path already won the terminal race this is a no-op.
func (e *Engine) cancelTransaction(tx *Transaction) {
	if !tx.terminal(api.TxCancelled) {
		return
	}
	e.backend.Stop(e)
	e.ctrlClear(CtrlRun)
	// the stopped hardware path may still be walking the descriptor
	// chain, so it is left to the collector instead of the pool
	e.release(tx, false)
	tx.req.UnmarkCancelable()
	tx.req.Complete(0, fmt.Errorf("%s transfer aborted: %w", e.Name(), api.ErrCancelled))
}

// release returns transaction resources. Reached exactly once per
// transaction, from whichever path won the terminal transition.
func (e *Engine) release(tx *Transaction, recycle bool) {
	e.cur.CompareAndSwap(tx, nil)
	if recycle && tx.descs != nil {
		descs := tx.descs
		e.descPool.Put(&descs)
	}
}

// pollTransfer drives a transfer to completion from the submitting
// context, mirroring writeback progress into the status window.
func (e *Engine) pollTransfer(tx *Transaction) {
	for tx.State() == api.TxExecuting {
		if e.observe(tx) {
			return
		}
		time.Sleep(e.pollInterval)
	}
}

// ServiceInterrupt finalizes the current transaction from the
// interrupt delivery path. Spurious interrupts are ignored.
func (e *Engine) ServiceInterrupt() {
	tx := e.cur.Load()
	if tx == nil {
		return
	}
	e.observe(tx)
}

// observe checks writeback progress and performs the terminal
// transition once the transfer has finished or faulted. It reports
// whether the transaction reached a terminal state.
func (e *Engine) observe(tx *Transaction) bool {
	descDone, bytes, fault := tx.progress()
	mmio.WriteU32(e.regs, RegDescDone, descDone)
	if fault != 0 {
		mmio.WriteU32(e.regs, RegStatus, StatusDescStopped|StatusReadError)
		err := fmt.Errorf("%s hardware fault %#x: %w", e.Name(), fault, api.ErrTransactionFailure)
		return e.finish(tx, api.TxFailed, int(bytes), err)
	}
	if int(descDone) >= len(tx.descs) {
		mmio.WriteU32(e.regs, RegStatus, StatusDescStopped)
		return e.finish(tx, api.TxCompleted, int(bytes), nil)
	}
	return false
}

// EnableInterrupt unmasks descriptor-done interrupt delivery.
func (e *Engine) EnableInterrupt() {
	mmio.WriteU32(e.regs, RegIntEnableW1S, IntDescDone)
	mmio.WriteU32(e.regs, RegIntEnable, mmio.ReadU32(e.regs, RegIntEnable)|IntDescDone)
}

// DisableInterrupt masks descriptor-done interrupt delivery.
func (e *Engine) DisableInterrupt() {
	mmio.WriteU32(e.regs, RegIntEnableW1C, IntDescDone)
	mmio.WriteU32(e.regs, RegIntEnable, mmio.ReadU32(e.regs, RegIntEnable)&^IntDescDone)
}

// SetAddressMode selects fixed (non-incrementing) or incrementing
// device addressing and mirrors the bit into the control register.
func (e *Engine) SetAddressMode(fixed bool) {
	if fixed {
		e.ctrlSet(CtrlNonIncMode)
	} else {
		e.ctrlClear(CtrlNonIncMode)
	}
}

// AddressMode reports fixed (true) or incrementing (false) addressing
// straight from the control register.
func (e *Engine) AddressMode() bool {
	return mmio.ReadU32(e.regs, RegControl)&CtrlNonIncMode != 0
}

// ctrlSet sets control bits through the W1S companion and keeps the
// base register mirror coherent.
func (e *Engine) ctrlSet(bits uint32) {
	mmio.WriteU32(e.regs, RegControlW1S, bits)
	mmio.WriteU32(e.regs, RegControl, mmio.ReadU32(e.regs, RegControl)|bits)
}

// ctrlClear clears control bits through the W1C companion.
func (e *Engine) ctrlClear(bits uint32) {
	mmio.WriteU32(e.regs, RegControlW1C, bits)
	mmio.WriteU32(e.regs, RegControl, mmio.ReadU32(e.regs, RegControl)&^bits)
}
