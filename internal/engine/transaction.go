// File: internal/engine/transaction.go
// Package engine drives per-channel DMA transactions.
// Author: MaybeNext
// License: Apache-2.0
//
// Transaction is the lifecycle record of one in-flight transfer. Its
// state field is the single synchronization point between the three
// parties that may try to terminate it: the cancel hook, the interrupt
// service path and the poll loop. Whoever wins the compare-and-swap
// out of Executing performs the release-and-complete sequence; the
// losers observe a terminal state and back off.

package engine

import (
	"sync/atomic"

	"github.com/MaybeNext/xadma/api"
)

// Transaction binds one request to one engine transfer.
type Transaction struct {
	engine *Engine
	req    *api.Request
	dir    api.Direction
	descs  []Descriptor

	state atomic.Int32

	// Hardware writeback record. The backend stores progress here and
	// the engine mirrors it into the status window, keeping register
	// traffic single-writer.
	wbDescDone atomic.Uint32
	wbBytes    atomic.Uint64
	wbError    atomic.Uint32 // nonzero: hardware fault code
}

// Request returns the bound request.
func (t *Transaction) Request() *api.Request { return t.req }

// Dir returns the transfer direction.
func (t *Transaction) Dir() api.Direction { return t.dir }

// Descriptors returns the programmed descriptor chain.
func (t *Transaction) Descriptors() []Descriptor { return t.descs }

// State returns the current lifecycle state.
func (t *Transaction) State() api.TxState {
	return api.TxState(t.state.Load())
}

// terminal attempts the Executing -> to transition. Exactly one caller
// per transaction succeeds.
func (t *Transaction) terminal(to api.TxState) bool {
	return t.state.CompareAndSwap(int32(api.TxExecuting), int32(to))
}

// PostProgress records backend progress: descriptors retired and bytes
// moved so far. A nonzero fault code marks the transfer failed.
func (t *Transaction) PostProgress(descDone uint32, bytes uint64, fault uint32) {
	t.wbBytes.Store(bytes)
	t.wbError.Store(fault)
	t.wbDescDone.Store(descDone)
}

// progress returns the writeback snapshot.
func (t *Transaction) progress() (descDone uint32, bytes uint64, fault uint32) {
	return t.wbDescDone.Load(), t.wbBytes.Load(), t.wbError.Load()
}
