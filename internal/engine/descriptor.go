// File: internal/engine/descriptor.go
// Package engine drives per-channel DMA transactions.
// Author: MaybeNext
// License: Apache-2.0
//
// Software view of the hardware scatter-gather descriptor. One
// descriptor covers a single contiguous segment; the request buffer is
// split into page-sized segments chained by Next indices, with the
// stop bit on the last entry.

package engine

import "github.com/MaybeNext/xadma/api"

// MaxDescLen is the per-descriptor transfer limit.
const MaxDescLen = 4096

// Descriptor control bits.
const (
	DescMagic   uint32 = 0xAD4B << 16
	DescCtlStop uint32 = 1 << 0
	DescCtlEOP  uint32 = 1 << 4
)

// Descriptor describes one contiguous DMA segment.
type Descriptor struct {
	Control uint32
	Len     uint32
	// DevAddr is the device-side byte address of the segment.
	DevAddr uint64
	// HostOff is the segment's offset into the request buffer.
	HostOff uint64
	// Next is the index of the following descriptor in the chain.
	Next uint32
}

// buildDescriptors programs the descriptor chain for a request buffer
// at the given device offset. It reuses the backing array of descs.
func buildDescriptors(descs []Descriptor, length int, devOffset int64, dir api.Direction) ([]Descriptor, error) {
	if length <= 0 {
		return descs[:0], api.ErrTransactionFailure
	}
	descs = descs[:0]
	for off := 0; off < length; off += MaxDescLen {
		seg := length - off
		if seg > MaxDescLen {
			seg = MaxDescLen
		}
		descs = append(descs, Descriptor{
			Control: DescMagic,
			Len:     uint32(seg),
			DevAddr: uint64(devOffset) + uint64(off),
			HostOff: uint64(off),
			Next:    uint32(len(descs) + 1),
		})
	}
	last := &descs[len(descs)-1]
	last.Control |= DescCtlStop
	if dir == api.DirH2C {
		last.Control |= DescCtlEOP
	}
	last.Next = 0
	return descs, nil
}
