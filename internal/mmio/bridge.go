// File: internal/mmio/bridge.go
// Package mmio performs width-adapted access to mapped register windows.
// Author: MaybeNext
// License: Apache-2.0
//
// The bridge mirrors hardware bus semantics: a transfer whose length is
// a multiple of four is issued as 32-bit accesses, a multiple of two as
// 16-bit accesses, anything else byte-wise. Bounds checking against the
// BAR window is the dispatcher's responsibility; the bridge only
// rejects zero-length transfers.

package mmio

import (
	"encoding/binary"

	"github.com/MaybeNext/xadma/api"
)

// Read copies len(dst) bytes from bar at offset into dst using the
// widest access granularity that evenly divides the length.
func Read(bar []byte, offset int64, dst []byte) error {
	if len(dst) == 0 {
		return api.ErrInvalidParameter
	}
	src := bar[offset : offset+int64(len(dst))]
	switch {
	case len(dst)%4 == 0:
		for i := 0; i < len(dst); i += 4 {
			binary.LittleEndian.PutUint32(dst[i:], binary.LittleEndian.Uint32(src[i:]))
		}
	case len(dst)%2 == 0:
		for i := 0; i < len(dst); i += 2 {
			binary.LittleEndian.PutUint16(dst[i:], binary.LittleEndian.Uint16(src[i:]))
		}
	default:
		copy(dst, src)
	}
	return nil
}

// Write copies src into bar at offset using the widest access
// granularity that evenly divides the length.
func Write(bar []byte, offset int64, src []byte) error {
	if len(src) == 0 {
		return api.ErrInvalidParameter
	}
	dst := bar[offset : offset+int64(len(src))]
	switch {
	case len(src)%4 == 0:
		for i := 0; i < len(src); i += 4 {
			binary.LittleEndian.PutUint32(dst[i:], binary.LittleEndian.Uint32(src[i:]))
		}
	case len(src)%2 == 0:
		for i := 0; i < len(src); i += 2 {
			binary.LittleEndian.PutUint16(dst[i:], binary.LittleEndian.Uint16(src[i:]))
		}
	default:
		copy(dst, src)
	}
	return nil
}

// ReadU32 reads one 32-bit register at offset.
func ReadU32(bar []byte, offset int64) uint32 {
	return binary.LittleEndian.Uint32(bar[offset:])
}

// WriteU32 writes one 32-bit register at offset.
func WriteU32(bar []byte, offset int64, val uint32) {
	binary.LittleEndian.PutUint32(bar[offset:], val)
}
