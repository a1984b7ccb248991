// File: api/mmio.go
// Package api defines the public contracts of the xadma driver core.
// Author: MaybeNext
// License: Apache-2.0
//
// Region abstracts one mapped BAR window. Implementations may be real
// PCI resource mappings or plain in-memory windows for simulated
// hardware; the dispatch and engine layers only ever see this
// interface.

package api

// Region is a mapped register window.
type Region interface {
	// Bytes returns the live view of the mapped window. The slice
	// aliases device registers; width-adapted access rules apply.
	Bytes() []byte

	// Len returns the mapped length in bytes.
	Len() int

	// Close releases the mapping. The Bytes view must not be used
	// afterwards.
	Close() error
}
