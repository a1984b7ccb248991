// File: node.go
// Author: MaybeNext
// License: Apache-2.0
//
// Node is one opened logical endpoint. Kind and resource binding are
// fixed at open time and never change; a closed node fails every
// operation.

package xadma

import (
	"sync/atomic"

	"github.com/MaybeNext/xadma/api"
	"github.com/MaybeNext/xadma/internal/engine"
	"github.com/MaybeNext/xadma/internal/event"
)

// Node is an opened device node.
type Node struct {
	dev     *Device
	name    string
	kind    api.NodeKind
	channel int

	// exactly one of these is bound, per kind
	bar   api.Region
	eng   *engine.Engine
	queue *engineQueue
	event *event.Source

	closed atomic.Bool
}

// Name returns the node's device name.
func (n *Node) Name() string { return n.name }

// Kind returns the node classification.
func (n *Node) Kind() api.NodeKind { return n.kind }

// ReadAt reads into p from device offset off and blocks until the
// request completes.
func (n *Node) ReadAt(p []byte, off int64) (int, error) {
	req := api.NewRequest(api.OpRead, off, p)
	n.Dispatch(req)
	return req.Wait()
}

// WriteAt writes p to device offset off and blocks until the request
// completes.
func (n *Node) WriteAt(p []byte, off int64) (int, error) {
	req := api.NewRequest(api.OpWrite, off, p)
	n.Dispatch(req)
	return req.Wait()
}

// Close releases the node. Streaming receive rings are torn down and
// a blocked ring reader is woken.
func (n *Node) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	if n.kind == api.NodeStreamC2H {
		n.eng.Ring().Cancel()
		n.eng.Ring().Reset()
	}
	return nil
}
