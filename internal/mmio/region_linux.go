// File: internal/mmio/region_linux.go
// Package mmio performs width-adapted access to mapped register windows.
// Author: MaybeNext
// License: Apache-2.0
//
// MappedRegion maps a PCI BAR through its sysfs resource file, e.g.
// /sys/bus/pci/devices/0000:03:00.0/resource0. The mapping is shared so
// stores reach the device immediately.

//go:build linux

package mmio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/MaybeNext/xadma/api"
)

// Ensure compile-time interface compliance.
var _ api.Region = (*MappedRegion)(nil)

// MappedRegion is a BAR window backed by a sysfs resource mapping.
type MappedRegion struct {
	mem []byte
}

// MapBarRegion maps the PCI resource file at path read-write.
func MapBarRegion(path string) (*MappedRegion, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmio: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mmio: stat %s: %w", path, err)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmio: mmap %s: %w", path, err)
	}
	return &MappedRegion{mem: mem}, nil
}

func (r *MappedRegion) Bytes() []byte { return r.mem }
func (r *MappedRegion) Len() int      { return len(r.mem) }

// Close unmaps the window.
func (r *MappedRegion) Close() error {
	if r.mem == nil {
		return nil
	}
	mem := r.mem
	r.mem = nil
	return unix.Munmap(mem)
}
