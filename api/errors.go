// File: api/errors.go
// Package api defines the public contracts of the xadma driver core.
// Author: MaybeNext
// License: Apache-2.0
//
// Error taxonomy surfaced by the dispatch and transfer layers. Callers
// classify with errors.Is; every failure path maps onto exactly one of
// these sentinels, possibly wrapped with context.

package api

import "errors"

var (
	// ErrInvalidParameter reports a malformed request shape: unknown node
	// name, zero-length register access, or a wrongly sized event buffer.
	ErrInvalidParameter = errors.New("xadma: invalid parameter")

	// ErrInvalidDeviceRequest reports an operation/node-kind mismatch,
	// such as a write issued on a card-to-host channel.
	ErrInvalidDeviceRequest = errors.New("xadma: invalid device request")

	// ErrDeviceNotReady reports a disabled engine or a missing resource
	// binding behind an otherwise valid node.
	ErrDeviceNotReady = errors.New("xadma: device not ready")

	// ErrOutOfRange reports a register access past the mapped BAR window.
	ErrOutOfRange = errors.New("xadma: offset out of range")

	// ErrTimeout reports a ring or event wait that exceeded its bound.
	ErrTimeout = errors.New("xadma: timed out")

	// ErrCancelled reports a client-initiated abort of an in-flight
	// transfer or wait.
	ErrCancelled = errors.New("xadma: cancelled")

	// ErrTransactionFailure reports a hardware-reported transfer error or
	// a descriptor setup failure.
	ErrTransactionFailure = errors.New("xadma: transaction failure")

	// ErrNotSupported reports an unknown control code.
	ErrNotSupported = errors.New("xadma: not supported")

	// ErrNodeClosed reports an operation on a closed device node.
	ErrNodeClosed = errors.New("xadma: node closed")
)
