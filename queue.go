// File: queue.go
// Author: MaybeNext
// License: Apache-2.0
//
// Per-engine serialized queue. All transfer requests for one
// (direction, channel) pair funnel through its queue worker, giving
// FIFO processing in submission order and at most one transaction in
// flight per engine. The worker waits for each request's terminal
// outcome before popping the next, which also covers interrupt-mode
// completions arriving from the hardware path.

package xadma

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/MaybeNext/xadma/api"
	xengine "github.com/MaybeNext/xadma/internal/engine"
)

type engineQueue struct {
	dev *Device
	eng *xengine.Engine

	mu      sync.Mutex
	fifo    *queue.Queue // *api.Request in submission order
	stopped bool

	wake chan struct{}
	quit chan struct{}
}

func newEngineQueue(dev *Device, eng *xengine.Engine) *engineQueue {
	q := &engineQueue{
		dev:  dev,
		eng:  eng,
		fifo: queue.New(),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	go q.worker()
	return q
}

// forward enqueues req for the queue worker. It never blocks.
func (q *engineQueue) forward(req *api.Request) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return fmt.Errorf("%s queue stopped: %w", q.eng.Name(), api.ErrNodeClosed)
	}
	q.fifo.Add(req)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// pop removes the oldest pending request, nil when empty.
func (q *engineQueue) pop() *api.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fifo.Length() == 0 {
		return nil
	}
	return q.fifo.Remove().(*api.Request)
}

func (q *engineQueue) worker() {
	for {
		req := q.pop()
		if req == nil {
			select {
			case <-q.wake:
				continue
			case <-q.quit:
				q.drain()
				return
			}
		}
		q.handle(req)
	}
}

// handle processes one request to its terminal outcome.
func (q *engineQueue) handle(req *api.Request) {
	if q.eng.Mode() == api.ModeStreaming && q.eng.Dir() == api.DirC2H && req.Op == api.OpRead {
		q.readRing(req)
		return
	}
	q.eng.Submit(req)
	// in interrupt mode the completion arrives from the hardware
	// path; either way the next request starts only after this one
	// reached a terminal state
	<-req.Done()
}

// readRing drains the streaming receive ring into the request buffer
// under the configured timeout.
func (q *engineQueue) readRing(req *api.Request) {
	ring := q.eng.Ring()
	req.MarkCancelable(func(*api.Request) { ring.Cancel() })
	timeout := q.dev.store.Snapshot().StreamTimeout

	n, err := ring.ReadBytes(req.Data, timeout)
	req.UnmarkCancelable()
	if err != nil {
		req.Complete(0, fmt.Errorf("%s ring read: %w", q.eng.Name(), err))
		return
	}
	req.Complete(n, nil)
}

// drain fails everything still queued after stop.
func (q *engineQueue) drain() {
	for {
		req := q.pop()
		if req == nil {
			return
		}
		req.Complete(0, fmt.Errorf("%s queue stopped: %w", q.eng.Name(), api.ErrNodeClosed))
	}
}

// stop shuts the worker down and fails pending requests.
func (q *engineQueue) stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()
	close(q.quit)
}
