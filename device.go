// File: device.go
// Author: MaybeNext
// License: Apache-2.0
//
// Device aggregates the card's resources: mapped BAR windows, one
// engine plus serialized queue per DMA channel, and the event
// sources. The node table is built once at construction; Open is a
// map lookup plus resource binding.

package xadma

import (
	"fmt"
	"log"

	"github.com/MaybeNext/xadma/api"
	"github.com/MaybeNext/xadma/control"
	"github.com/MaybeNext/xadma/internal/engine"
	"github.com/MaybeNext/xadma/internal/event"
)

// Engine register file layout within the control BAR.
const (
	h2cRegBase = 0x0000
	c2hRegBase = 0x1000
	regSpan    = 0x2000
)

// ChannelConfig describes one DMA channel of the card.
type ChannelConfig struct {
	Dir     api.Direction
	Mode    api.EngineMode
	Enabled bool
}

// DeviceConfig wires a Device to its hardware resources.
type DeviceConfig struct {
	// Opts tunes timeouts, ring sizing and completion mode.
	Opts control.Options
	// Backend runs DMA transfers (real hardware glue or fake.Backend).
	Backend engine.Backend
	// ControlBar is the DMA config BAR; required, at least 8 KiB for
	// the engine register files.
	ControlBar api.Region
	// UserBar and BypassBar are optional; their nodes exist only when
	// the window is present.
	UserBar   api.Region
	BypassBar api.Region
	// Channels lists the card's DMA channels. Channel indices count
	// per direction in listed order.
	Channels []ChannelConfig
	// NumEvents is the number of out-of-band event lines.
	NumEvents int
}

type nodeBinding struct {
	kind    api.NodeKind
	channel int
}

// Device is one accelerator card.
type Device struct {
	store *control.Store

	bars    map[api.NodeKind]api.Region
	engines map[api.Direction][]*engine.Engine
	queues  map[api.Direction][]*engineQueue
	events  []*event.Source

	nodes map[string]nodeBinding
}

// NewDevice builds the device, its engines and their queues, and the
// static name table.
func NewDevice(cfg DeviceConfig) (*Device, error) {
	if cfg.ControlBar == nil {
		return nil, fmt.Errorf("missing control BAR: %w", api.ErrDeviceNotReady)
	}
	if cfg.ControlBar.Len() < regSpan {
		return nil, fmt.Errorf("control BAR %d bytes, need %d: %w",
			cfg.ControlBar.Len(), regSpan, api.ErrDeviceNotReady)
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("missing backend: %w", api.ErrDeviceNotReady)
	}

	d := &Device{
		store:   control.NewStore(cfg.Opts),
		bars:    map[api.NodeKind]api.Region{api.NodeControlBar: cfg.ControlBar},
		engines: map[api.Direction][]*engine.Engine{},
		queues:  map[api.Direction][]*engineQueue{},
		nodes:   map[string]nodeBinding{},
	}
	if cfg.UserBar != nil {
		d.bars[api.NodeUserBar] = cfg.UserBar
	}
	if cfg.BypassBar != nil {
		d.bars[api.NodeBypassBar] = cfg.BypassBar
	}
	for kind := range d.bars {
		d.nodes[kind.String()] = nodeBinding{kind: kind}
	}

	opts := d.store.Snapshot()
	ctrl := cfg.ControlBar.Bytes()
	for _, ch := range cfg.Channels {
		idx := len(d.engines[ch.Dir])
		base := h2cRegBase
		if ch.Dir == api.DirC2H {
			base = c2hRegBase
		}
		regOff := base + idx*engine.RegBlockLen
		if regOff+engine.RegBlockLen > regSpan {
			return nil, fmt.Errorf("too many %s channels for the register file: %w",
				ch.Dir, api.ErrInvalidParameter)
		}
		e := engine.New(engine.Config{
			Dir:          ch.Dir,
			Channel:      idx,
			Mode:         ch.Mode,
			Enabled:      ch.Enabled,
			Regs:         ctrl[regOff : regOff+engine.RegBlockLen],
			Backend:      cfg.Backend,
			RingCapacity: opts.RingCapacity,
			PollInterval: opts.PollInterval,
		})
		d.engines[ch.Dir] = append(d.engines[ch.Dir], e)
		d.queues[ch.Dir] = append(d.queues[ch.Dir], newEngineQueue(d, e))

		kind := api.NodeDmaH2C
		switch {
		case ch.Dir == api.DirH2C && ch.Mode == api.ModeStreaming:
			kind = api.NodeStreamH2C
		case ch.Dir == api.DirC2H && ch.Mode == api.ModeStandard:
			kind = api.NodeDmaC2H
		case ch.Dir == api.DirC2H && ch.Mode == api.ModeStreaming:
			kind = api.NodeStreamC2H
		}
		d.nodes[fmt.Sprintf("%s_%d", kind, idx)] = nodeBinding{kind: kind, channel: idx}
	}

	for i := 0; i < cfg.NumEvents; i++ {
		d.events = append(d.events, event.NewSource(i))
		d.nodes[fmt.Sprintf("events_%d", i)] = nodeBinding{kind: api.NodeEvent, channel: i}
	}
	return d, nil
}

// Options returns the live options store.
func (d *Device) Options() *control.Store { return d.store }

// Open resolves a node name and binds its resource. Unrecognized
// names fail with api.ErrInvalidParameter.
func (d *Device) Open(name string) (*Node, error) {
	b, ok := d.nodes[name]
	if !ok {
		return nil, fmt.Errorf("device node %q: %w", name, api.ErrInvalidParameter)
	}

	n := &Node{dev: d, name: name, kind: b.kind, channel: b.channel}
	switch {
	case b.kind.IsBar():
		n.bar = d.bars[b.kind]
	case b.kind.IsDma():
		n.eng = d.engines[b.kind.Dir()][b.channel]
		n.queue = d.queues[b.kind.Dir()][b.channel]
		// poll/interrupt policy is engine-configured and applied
		// uniformly to every DMA node kind
		n.eng.SetPoll(d.store.Snapshot().PollMode)
		if b.kind == api.NodeStreamC2H {
			n.eng.Ring().Reset()
		}
	case b.kind == api.NodeEvent:
		n.event = d.events[b.channel]
	}
	return n, nil
}

// FeedStream is the hardware receive path for streaming C2H channel
// ch: it appends p to the engine's ring and wakes a blocked reader.
// Simulated backends and interrupt glue call it; it reports the bytes
// accepted.
func (d *Device) FeedStream(ch int, p []byte) (int, error) {
	engines := d.engines[api.DirC2H]
	if ch < 0 || ch >= len(engines) || engines[ch].Ring() == nil {
		return 0, fmt.Errorf("no streaming c2h_%d engine: %w", ch, api.ErrInvalidParameter)
	}
	return engines[ch].Ring().Write(p), nil
}

// SignalEvent is the interrupt delivery path for event line id.
func (d *Device) SignalEvent(id int) error {
	if id < 0 || id >= len(d.events) {
		return fmt.Errorf("no event line %d: %w", id, api.ErrInvalidParameter)
	}
	d.events[id].Pulse()
	return nil
}

// Close stops the engine queues and releases the BAR mappings.
func (d *Device) Close() error {
	for _, queues := range d.queues {
		for _, q := range queues {
			q.stop()
		}
	}
	for _, src := range d.events {
		src.Cancel()
	}
	var firstErr error
	for kind, bar := range d.bars {
		if err := bar.Close(); err != nil {
			log.Printf("xadma: closing %s BAR: %v", kind, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
