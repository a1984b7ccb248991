// File: api/request.go
// Package api defines the public contracts of the xadma driver core.
// Author: MaybeNext
// License: Apache-2.0
//
// Request is the unit of work flowing through the dispatcher. A request
// is completed exactly once: the one-shot guard below is the single
// synchronization point every terminal path (synchronous routing,
// polled completion, interrupt completion, cancellation) must win
// before touching the outcome.

package api

import (
	"sync"
	"sync/atomic"
)

// Op identifies the operation a request carries.
type Op uint8

const (
	// OpRead transfers device data into the request buffer.
	OpRead Op = iota
	// OpWrite transfers the request buffer to the device.
	OpWrite
)

// CancelFunc aborts an in-flight request. It is invoked at most once,
// and never after UnmarkCancelable has returned.
type CancelFunc func(*Request)

// Request carries one caller-initiated read or write operation.
// The zero value is not usable; construct with NewRequest.
type Request struct {
	// Op is the operation kind.
	Op Op
	// Offset is the device offset for register access.
	Offset int64
	// Data is the input buffer for writes and the destination for reads.
	Data []byte

	done      chan struct{}
	completed atomic.Bool
	bytes     int
	err       error

	cancelMu sync.Mutex
	cancel   CancelFunc
}

// NewRequest builds a request over the given buffer.
func NewRequest(op Op, offset int64, data []byte) *Request {
	return &Request{
		Op:     op,
		Offset: offset,
		Data:   data,
		done:   make(chan struct{}),
	}
}

// Len returns the requested transfer length in bytes.
func (r *Request) Len() int { return len(r.Data) }

// Complete finishes the request with the transferred byte count and a
// terminal error (nil on success). Only the first caller wins; later
// calls are no-ops, which is what closes the completion-vs-cancel race.
func (r *Request) Complete(n int, err error) bool {
	if !r.completed.CompareAndSwap(false, true) {
		return false
	}
	r.bytes = n
	r.err = err
	close(r.done)
	return true
}

// Done is closed once the request has reached a terminal outcome.
func (r *Request) Done() <-chan struct{} { return r.done }

// Wait blocks until completion and returns the outcome.
func (r *Request) Wait() (int, error) {
	<-r.done
	return r.bytes, r.err
}

// Outcome returns the terminal result. Valid only after Done.
func (r *Request) Outcome() (int, error) { return r.bytes, r.err }

// MarkCancelable registers the abort hook. The engine installs it
// before handing the transfer to hardware so a racing Cancel is never
// lost in the submission window.
func (r *Request) MarkCancelable(fn CancelFunc) {
	r.cancelMu.Lock()
	r.cancel = fn
	r.cancelMu.Unlock()
}

// UnmarkCancelable removes the abort hook. After it returns, Cancel
// will not invoke the hook.
func (r *Request) UnmarkCancelable() {
	r.cancelMu.Lock()
	r.cancel = nil
	r.cancelMu.Unlock()
}

// Cancel aborts the request if an abort hook is currently installed.
// It reports whether a hook was invoked; completion of the request is
// the hook's responsibility.
func (r *Request) Cancel() bool {
	r.cancelMu.Lock()
	fn := r.cancel
	r.cancel = nil
	r.cancelMu.Unlock()
	if fn == nil {
		return false
	}
	fn(r)
	return true
}
