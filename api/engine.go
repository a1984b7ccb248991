// File: api/engine.go
// Package api defines the public contracts of the xadma driver core.
// Author: MaybeNext
// License: Apache-2.0
//
// Engine-facing types shared between the dispatch layer, the transfer
// engine and hardware backends.

package api

// EngineMode distinguishes memory-mapped from streaming channels.
type EngineMode uint8

const (
	// ModeStandard is a memory-mapped DMA channel.
	ModeStandard EngineMode = iota
	// ModeStreaming is a stream channel; C2H receive data lands in a
	// per-engine ring buffer.
	ModeStreaming
)

// TxState is the lifecycle state of one DMA transaction.
type TxState int32

const (
	TxIdle TxState = iota
	TxInitialized
	TxExecuting
	TxCompleted
	TxCancelled
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxInitialized:
		return "initialized"
	case TxExecuting:
		return "executing"
	case TxCompleted:
		return "completed"
	case TxCancelled:
		return "cancelled"
	case TxFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// PerfData is a snapshot of an engine's performance counters, as
// returned by the PerfGet control operation.
type PerfData struct {
	// Running reports whether the counters are currently accumulating.
	Running bool
	// ClockCycles is the number of engine clock cycles since PerfStart.
	ClockCycles uint64
	// DataCycles is the number of cycles the datapath moved bytes.
	DataCycles uint64
	// DescCount is the number of descriptors retired since PerfStart.
	DescCount uint64
}
