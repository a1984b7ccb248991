// File: api/node.go
// Package api defines the public contracts of the xadma driver core.
// Author: MaybeNext
// License: Apache-2.0
//
// Device-node classification. Every logical endpoint exposed by the
// device resolves to exactly one NodeKind at open time, and the kind
// never changes for the lifetime of the node.

package api

// Direction identifies the transfer direction of a DMA engine.
type Direction uint8

const (
	// DirH2C moves data host-to-card.
	DirH2C Direction = iota
	// DirC2H moves data card-to-host.
	DirC2H
)

// String returns the short wire name used in node names and logs.
func (d Direction) String() string {
	if d == DirH2C {
		return "h2c"
	}
	return "c2h"
}

// NodeKind classifies a device node by the resource it is bound to.
type NodeKind uint8

const (
	// NodeUnknown carries no resource; all operations on it fail.
	NodeUnknown NodeKind = iota

	// NodeControlBar exposes the DMA config/control register BAR.
	NodeControlBar
	// NodeUserBar exposes the user-logic register BAR.
	NodeUserBar
	// NodeBypassBar exposes the descriptor-bypass BAR.
	NodeBypassBar

	// NodeDmaH2C and NodeDmaC2H are memory-mapped DMA channels.
	NodeDmaH2C
	NodeDmaC2H

	// NodeStreamH2C and NodeStreamC2H are streaming DMA channels; C2H
	// streaming reads drain the engine's receive ring buffer.
	NodeStreamH2C
	NodeStreamC2H

	// NodeEvent exposes one out-of-band hardware event source.
	NodeEvent
)

// IsBar reports whether the node maps a register region.
func (k NodeKind) IsBar() bool {
	return k == NodeControlBar || k == NodeUserBar || k == NodeBypassBar
}

// IsDma reports whether the node is bound to a DMA engine, streaming
// or standard.
func (k NodeKind) IsDma() bool {
	return k == NodeDmaH2C || k == NodeDmaC2H || k == NodeStreamH2C || k == NodeStreamC2H
}

// Dir returns the transfer direction of a DMA node kind.
func (k NodeKind) Dir() Direction {
	if k == NodeDmaH2C || k == NodeStreamH2C {
		return DirH2C
	}
	return DirC2H
}

func (k NodeKind) String() string {
	switch k {
	case NodeControlBar:
		return "control"
	case NodeUserBar:
		return "user"
	case NodeBypassBar:
		return "bypass"
	case NodeDmaH2C:
		return "h2c"
	case NodeDmaC2H:
		return "c2h"
	case NodeStreamH2C:
		return "h2c_st"
	case NodeStreamC2H:
		return "c2h_st"
	case NodeEvent:
		return "events"
	default:
		return "unknown"
	}
}
