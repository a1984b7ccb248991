// File: doc.go
// Author: MaybeNext
// License: Apache-2.0

// Package xadma routes I/O requests arriving on logical device nodes
// to the hardware-access pathway of a PCIe DMA accelerator card and
// manages the lifecycle of in-flight transfers.
//
// A Device exposes named nodes: register BARs ("control", "user",
// "bypass") completed synchronously through width-adapted MMIO, DMA
// channels ("h2c_0", "c2h_0", ...) serialized through per-engine
// queues, streaming channels ("c2h_st_0", ...) drained from receive
// ring buffers, and event lines ("events_0", ...) backed by a
// wait/signal protocol. Transfers support cancellation racing against
// hardware completion; exactly one of the two finalizes each
// transaction.
package xadma
