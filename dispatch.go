// File: dispatch.go
// Author: MaybeNext
// License: Apache-2.0
//
// Request routing. Dispatch classifies a request by the node's kind
// and either completes it synchronously (register BARs), forwards it
// to the owning engine's serialized queue (DMA and streaming), or
// parks it on the event wait service. Dispatch itself never blocks:
// every path either completes the request immediately or hands it to
// another context. Validation failures are reported before any
// hardware action, so a failed request has no partial side effects.

package xadma

import (
	"fmt"

	"github.com/MaybeNext/xadma/api"
	"github.com/MaybeNext/xadma/internal/mmio"
)

// Dispatch routes req according to the node kind. The request is
// completed or forwarded exactly once; the returned error mirrors
// synchronous failures for callers that do not track the request.
func (n *Node) Dispatch(req *api.Request) error {
	if n.closed.Load() {
		return n.fail(req, fmt.Errorf("%s: %w", n.name, api.ErrNodeClosed))
	}

	switch {
	case n.kind.IsBar():
		return n.dispatchBar(req)

	case n.kind.IsDma():
		// direction check: reads drain C2H, writes feed H2C
		if req.Op == api.OpRead && n.kind.Dir() != api.DirC2H ||
			req.Op == api.OpWrite && n.kind.Dir() != api.DirH2C {
			return n.fail(req, fmt.Errorf("%s on %s: %w", opName(req.Op), n.name, api.ErrInvalidDeviceRequest))
		}
		if err := n.queue.forward(req); err != nil {
			return n.fail(req, err)
		}
		return nil

	case n.kind == api.NodeEvent:
		return n.dispatchEvent(req)

	default:
		return n.fail(req, fmt.Errorf("%s: %w", n.name, api.ErrInvalidParameter))
	}
}

// dispatchBar validates bounds and completes the register access
// synchronously through the MMIO bridge.
func (n *Node) dispatchBar(req *api.Request) error {
	if req.Len() == 0 {
		return n.fail(req, fmt.Errorf("%s: zero-length register access: %w", n.name, api.ErrInvalidParameter))
	}
	if req.Offset < 0 || req.Offset+int64(req.Len()) >= int64(n.bar.Len()) {
		return n.fail(req, fmt.Errorf("%s: offset %d length %d exceeds %d-byte window: %w",
			n.name, req.Offset, req.Len(), n.bar.Len(), api.ErrOutOfRange))
	}

	var err error
	if req.Op == api.OpRead {
		err = mmio.Read(n.bar.Bytes(), req.Offset, req.Data)
	} else {
		err = mmio.Write(n.bar.Bytes(), req.Offset, req.Data)
	}
	if err != nil {
		return n.fail(req, err)
	}
	req.Complete(req.Len(), nil)
	return nil
}

// dispatchEvent parks the request on the event source. The wait runs
// off the dispatching context; the output is exactly one boolean byte
// on signaled and timed-out outcomes, and nothing on cancellation.
func (n *Node) dispatchEvent(req *api.Request) error {
	if req.Op != api.OpRead {
		return n.fail(req, fmt.Errorf("%s on %s: %w", opName(req.Op), n.name, api.ErrInvalidDeviceRequest))
	}
	if req.Len() != 1 {
		return n.fail(req, fmt.Errorf("%s: event read length %d, must be 1: %w",
			n.name, req.Len(), api.ErrInvalidParameter))
	}

	src := n.event
	req.MarkCancelable(func(*api.Request) { src.Cancel() })
	timeout := n.dev.store.Snapshot().EventTimeout
	go func() {
		signaled, err := src.Wait(timeout)
		req.UnmarkCancelable()
		if err != nil {
			// cancelled: complete without writing output
			req.Complete(0, fmt.Errorf("%s: %w", n.name, err))
			return
		}
		if signaled {
			req.Data[0] = 1
		} else {
			req.Data[0] = 0
		}
		req.Complete(1, nil)
	}()
	return nil
}

// fail completes req with err and returns it.
func (n *Node) fail(req *api.Request, err error) error {
	req.Complete(0, err)
	return err
}

func opName(op api.Op) string {
	if op == api.OpRead {
		return "read"
	}
	return "write"
}
