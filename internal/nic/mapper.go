// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package nic

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
)

// ManagementSlot is the guest slot ordinal reserved for management.
const ManagementSlot = 0

// ErrInvalidTopology is returned if the requested NIC count cannot be mapped.
var ErrInvalidTopology = errors.New("invalid topology")

// Topology describes the slot layout of a guest.
type Topology struct {
	// MaxDataSlots is the hardware imposed maximum number of data slots.
	MaxDataSlots int

	// SlotFormat is the format for guest interface names, like "eth%d".
	SlotFormat string

	// ExternalFormat is the format for container interface names. Defaults
	// to "eth%d".
	ExternalFormat string

	// FirstExternal is the external port index of the first data slot.
	// Defaults to 1. Instances sharing a container get disjoint ranges.
	FirstExternal int

	// MACSeed and Instance make MAC addresses unique across hosts and
	// instances while keeping them stable across restarts.
	MACSeed  string
	Instance uint8
}

// Descriptor describes a single NIC attachment.
type Descriptor struct {
	ExternalIndex int
	ExternalName  string
	SlotName      string
	SlotOrdinal   int

	// TapName is the host tap device backing a data slot. It is empty for
	// the management slot.
	TapName string

	MAC net.HardwareAddr
}

// Management returns true if d is the management slot.
func (d Descriptor) Management() bool {
	return d.SlotOrdinal == ManagementSlot
}

// NetdevID returns the QEMU netdev identifier for the slot.
func (d Descriptor) NetdevID() string {
	return fmt.Sprintf("p%02d", d.SlotOrdinal)
}

// Map computes the NIC descriptors for n data NICs.
//
// The result has n+1 entries: the management slot followed by the data slots
// in ascending external index order.
func Map(topo Topology, n int) ([]Descriptor, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative NIC count %d", ErrInvalidTopology, n)
	}

	if n > topo.MaxDataSlots {
		return nil, fmt.Errorf(
			"%w: %d data NICs requested, maximum is %d",
			ErrInvalidTopology,
			n,
			topo.MaxDataSlots,
		)
	}

	slotFormat := topo.SlotFormat
	if slotFormat == "" {
		slotFormat = "eth%d"
	}

	externalFormat := topo.ExternalFormat
	if externalFormat == "" {
		externalFormat = "eth%d"
	}

	first := topo.FirstExternal
	if first < 1 {
		first = 1
	}

	prefix := macPrefix(topo.MACSeed)

	descs := make([]Descriptor, 0, n+1)
	descs = append(descs, Descriptor{
		ExternalIndex: 0,
		ExternalName:  fmt.Sprintf(externalFormat, 0),
		SlotName:      fmt.Sprintf(slotFormat, ManagementSlot),
		SlotOrdinal:   ManagementSlot,
		MAC:           mac(prefix, topo.Instance, ManagementSlot),
	})

	for ordinal := 1; ordinal <= n; ordinal++ {
		external := first + ordinal - 1
		descs = append(descs, Descriptor{
			ExternalIndex: external,
			ExternalName:  fmt.Sprintf(externalFormat, external),
			SlotName:      fmt.Sprintf(slotFormat, ordinal),
			SlotOrdinal:   ordinal,
			TapName:       fmt.Sprintf("p%02d", external),
			MAC:           mac(prefix, topo.Instance, ordinal),
		})
	}

	return descs, nil
}

// Management returns the management descriptor of the list.
func Management(descs []Descriptor) (Descriptor, bool) {
	for _, desc := range descs {
		if desc.Management() {
			return desc, true
		}
	}

	return Descriptor{}, false
}

// Data returns all data slot descriptors of the list.
func Data(descs []Descriptor) []Descriptor {
	data := make([]Descriptor, 0, len(descs))

	for _, desc := range descs {
		if !desc.Management() {
			data = append(data, desc)
		}
	}

	return data
}

func macPrefix(seed string) [2]byte {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(seed))
	sum := hash.Sum32()

	return [2]byte{byte(sum >> 8), byte(sum)}
}

func mac(prefix [2]byte, instance uint8, slot int) net.HardwareAddr {
	return net.HardwareAddr{
		0x0c, 0x00, prefix[0], prefix[1], instance, byte(slot),
	}
}
