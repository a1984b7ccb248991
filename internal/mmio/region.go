// File: internal/mmio/region.go
// Package mmio performs width-adapted access to mapped register windows.
// Author: MaybeNext
// License: Apache-2.0
//
// SimRegion is a plain in-memory BAR window used by simulated hardware
// backends and tests. Real mappings live in region_linux.go.

package mmio

import "github.com/MaybeNext/xadma/api"

// Ensure compile-time interface compliance.
var _ api.Region = (*SimRegion)(nil)

// SimRegion is an in-memory register window.
type SimRegion struct {
	mem []byte
}

// NewSimRegion allocates a zeroed window of the given length.
func NewSimRegion(length int) *SimRegion {
	return &SimRegion{mem: make([]byte, length)}
}

func (r *SimRegion) Bytes() []byte { return r.mem }
func (r *SimRegion) Len() int      { return len(r.mem) }

// Close is a no-op for in-memory windows.
func (r *SimRegion) Close() error { return nil }
