// File: internal/engine/regs.go
// Package engine drives per-channel DMA transactions.
// Author: MaybeNext
// License: Apache-2.0
//
// Per-engine register block layout within the config BAR. Control and
// interrupt-enable registers carry W1S/W1C companions; the engine
// mirrors the effective value into the base register so window
// backends without set/clear decode stay coherent.

package engine

// Register offsets within one engine block.
const (
	RegID          = 0x00
	RegControl     = 0x04
	RegControlW1S  = 0x08
	RegControlW1C  = 0x0C
	RegStatus      = 0x40
	RegStatusRC    = 0x44 // read-to-clear alias
	RegDescDone    = 0x48 // completed descriptor count
	RegIntEnable   = 0x90
	RegIntEnableW1S = 0x94
	RegIntEnableW1C = 0x98
	RegPerfControl = 0xC0

	// RegBlockLen is the stride between engine blocks in the BAR.
	RegBlockLen = 0x100
)

// Control register bits.
const (
	CtrlRun        uint32 = 1 << 0
	CtrlIEDescDone uint32 = 1 << 1
	CtrlNonIncMode uint32 = 1 << 25 // fixed-address (non-incrementing) mode
)

// Status register bits.
const (
	StatusBusy        uint32 = 1 << 0
	StatusDescStopped uint32 = 1 << 1
	StatusReadError   uint32 = 1 << 9
	StatusWriteError  uint32 = 1 << 14
)

// Interrupt-enable bits.
const (
	IntDescDone uint32 = 1 << 1
)

// Performance-control bits.
const (
	PerfAuto  uint32 = 1 << 0
	PerfRun   uint32 = 1 << 1
	PerfClear uint32 = 1 << 2
)
