// File: ioctl.go
// Author: MaybeNext
// License: Apache-2.0
//
// Engine-scoped control operations. They operate on the engine behind
// the node's queue, so they are valid only on DMA channel nodes.

package xadma

import (
	"encoding/binary"
	"fmt"

	"github.com/MaybeNext/xadma/api"
)

// IoctlCode selects an engine control operation.
type IoctlCode uint32

const (
	// IoctlPerfStart resets and starts the engine performance counters.
	IoctlPerfStart IoctlCode = iota + 1
	// IoctlPerfGet copies the counter snapshot to the output buffer.
	IoctlPerfGet
	// IoctlAddrModeGet reads the address mode flag (4-byte output;
	// 0 = incrementing, 1 = fixed).
	IoctlAddrModeGet
	// IoctlAddrModeSet writes the address mode flag (4-byte input).
	IoctlAddrModeSet
)

// PerfDataSize is the wire size of a PerfData snapshot.
const PerfDataSize = 32

// Ioctl executes an engine control operation and returns the number
// of output bytes produced.
func (n *Node) Ioctl(code IoctlCode, in, out []byte) (int, error) {
	if n.closed.Load() {
		return 0, fmt.Errorf("%s: %w", n.name, api.ErrNodeClosed)
	}
	if n.queue == nil || n.eng == nil {
		return 0, fmt.Errorf("control ops apply to DMA nodes only, not %s: %w",
			n.name, api.ErrInvalidParameter)
	}

	switch code {
	case IoctlPerfStart:
		n.eng.StartPerf()
		return 0, nil

	case IoctlPerfGet:
		if len(out) < PerfDataSize {
			return 0, fmt.Errorf("perf snapshot needs %d bytes, got %d: %w",
				PerfDataSize, len(out), api.ErrInvalidParameter)
		}
		putPerfData(out, n.eng.GetPerf())
		return PerfDataSize, nil

	case IoctlAddrModeGet:
		if len(out) < 4 {
			return 0, fmt.Errorf("address mode flag is 4 bytes, got %d: %w",
				len(out), api.ErrInvalidParameter)
		}
		var mode uint32
		if n.eng.AddressMode() {
			mode = 1
		}
		binary.LittleEndian.PutUint32(out, mode)
		return 4, nil

	case IoctlAddrModeSet:
		if len(in) < 4 {
			return 0, fmt.Errorf("address mode flag is 4 bytes, got %d: %w",
				len(in), api.ErrInvalidParameter)
		}
		n.eng.SetAddressMode(binary.LittleEndian.Uint32(in) != 0)
		return 0, nil

	default:
		return 0, fmt.Errorf("control code %#x: %w", uint32(code), api.ErrNotSupported)
	}
}

// putPerfData encodes a snapshot: u32 running flag, u32 pad, then
// clock cycles, data cycles and descriptor count as u64.
func putPerfData(out []byte, data api.PerfData) {
	var running uint32
	if data.Running {
		running = 1
	}
	binary.LittleEndian.PutUint32(out[0:], running)
	binary.LittleEndian.PutUint32(out[4:], 0)
	binary.LittleEndian.PutUint64(out[8:], data.ClockCycles)
	binary.LittleEndian.PutUint64(out[16:], data.DataCycles)
	binary.LittleEndian.PutUint64(out[24:], data.DescCount)
}
