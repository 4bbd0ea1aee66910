// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"net"
)

// Drive interfaces.
const (
	DriveIDE    = "ide"
	DriveVirtio = "virtio"
)

// Network backends.
const (
	NetBackendUser = "user"
	NetBackendTap  = "tap"
)

const (
	defaultNICModel = "virtio-net-pci"

	// nicsPerBridge is the number of NICs placed on a single PCI bridge.
	// Addresses 0 and 1 of a bridge are left free.
	nicsPerBridge = 26
	firstNICAddr  = 2
)

// Drive is a disk attached to the guest.
type Drive struct {
	File      string
	Interface string
	Format    string
}

func (d Drive) argument() Argument {
	format := d.Format
	if format == "" {
		format = "qcow2"
	}

	return RepeatableArg("drive",
		"if="+d.Interface,
		"file="+d.File,
		"format="+format,
	)
}

// NIC is a network interface of the guest.
//
// Slot is the position of the NIC on the guest PCI bridges. Guests enumerate
// their interfaces in PCI order, so the slot determines the guest interface
// name.
type NIC struct {
	ID      string
	Model   string
	MAC     net.HardwareAddr
	Slot    int
	Backend string
	Options []string
}

// PCIPlacement returns the bridge bus and device address for a NIC slot.
func PCIPlacement(slot int) (string, int) {
	return fmt.Sprintf("pci.%d", slot/nicsPerBridge+1), slot%nicsPerBridge + firstNICAddr
}

func (n NIC) arguments() []Argument {
	model := n.Model
	if model == "" {
		model = defaultNICModel
	}

	bus, addr := PCIPlacement(n.Slot)

	device := []string{model, "netdev=" + n.ID}
	if n.MAC != nil {
		device = append(device, "mac="+n.MAC.String())
	}

	device = append(device, "bus="+bus, fmt.Sprintf("addr=0x%x", addr))

	netdev := make([]string, 0, len(n.Options)+2)
	netdev = append(netdev, n.Backend, "id="+n.ID)
	netdev = append(netdev, n.Options...)

	return []Argument{
		RepeatableArg("device", device...),
		RepeatableArg("netdev", netdev...),
	}
}

// HostForward is a user network port forward from the host to the guest.
type HostForward struct {
	Protocol  string
	HostPort  uint16
	GuestAddr string
	GuestPort uint16
}

// String returns the forward in QEMU "hostfwd" option format.
func (f HostForward) String() string {
	proto := f.Protocol
	if proto == "" {
		proto = "tcp"
	}

	return fmt.Sprintf("hostfwd=%s::%d-%s:%d", proto, f.HostPort, f.GuestAddr, f.GuestPort)
}
