// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/aibor/vrboot/internal/sys"
)

const (
	defaultExecutable    = "qemu-system-x86_64"
	defaultMachine       = "pc"
	defaultListenAddress = "0.0.0.0"
)

// CommandSpec defines the parameters for a [Command].
type CommandSpec struct {
	// Path to the qemu-system binary.
	Executable string

	// QEMU machine type to use. Depends on the QEMU binary used.
	Machine string

	// CPU type to use. Depends on machine type and QEMU binary used.
	CPU string

	// Number of CPUs for the guest.
	SMP uint64

	// Memory for the machine in MiB.
	Memory uint64

	// Disable KVM support.
	NoKVM bool

	// Drives in attachment order. The first one is the boot disk.
	Drives []Drive

	// CDROM is the path of an ISO image attached as cdrom, like a cloud-init
	// seed.
	CDROM string

	// NICs attached to the guest. They are placed on PCI bridges in the order
	// of their slots.
	NICs []NIC

	// ListenAddress is the host address the serial and monitor TCP servers
	// listen on.
	ListenAddress string

	// SerialPort is the TCP port of the serial console.
	SerialPort uint16

	// MonitorPort is the TCP port of the QEMU monitor. The monitor is
	// disabled if 0.
	MonitorPort uint16

	// ExtraArgs are extra arguments that are passed to the QEMU command.
	// They must not interfere with the essential arguments set by the CommandSpec
	// itself or an error will be returned on [NewCommand].
	ExtraArgs []Argument
}

// AddDefaults adds default values to the given spec if the fields are not set
// yet.
func (s *CommandSpec) AddDefaults() {
	if s.Executable == "" {
		s.Executable = defaultExecutable
	}

	if s.Machine == "" {
		s.Machine = defaultMachine
	}

	if s.ListenAddress == "" {
		s.ListenAddress = defaultListenAddress
	}

	if !s.NoKVM {
		s.NoKVM = !sys.KVMAvailable()
	}

	if s.CPU == "" && !s.NoKVM {
		s.CPU = "host"
	}
}

// Validate checks for known incompatibilities.
func (s *CommandSpec) Validate() error {
	switch {
	case s.Executable == "":
		return &ArgumentError{"no executable"}
	case s.Memory == 0:
		return &ArgumentError{"no memory"}
	case s.SMP == 0:
		return &ArgumentError{"no cpus"}
	case s.SerialPort == 0:
		return &ArgumentError{"no serial port"}
	case s.SerialPort == s.MonitorPort:
		return &ArgumentError{"serial and monitor port are equal"}
	case len(s.Drives) == 0:
		return &ArgumentError{"no boot drive"}
	}

	for _, drive := range s.Drives {
		if drive.File == "" {
			return &ArgumentError{"drive without file"}
		}

		switch drive.Interface {
		case DriveIDE, DriveVirtio:
		default:
			return &ArgumentError{"unknown drive interface: " + drive.Interface}
		}
	}

	ids := make(map[string]bool, len(s.NICs))
	slots := make(map[int]bool, len(s.NICs))

	for _, nic := range s.NICs {
		switch {
		case nic.ID == "":
			return &ArgumentError{"nic without id"}
		case ids[nic.ID]:
			return &ArgumentError{"duplicate nic id: " + nic.ID}
		case slots[nic.Slot]:
			return &ArgumentError{"duplicate nic slot: " + strconv.Itoa(nic.Slot)}
		case nic.Slot < 0:
			return &ArgumentError{"negative nic slot: " + strconv.Itoa(nic.Slot)}
		}

		switch nic.Backend {
		case NetBackendUser, NetBackendTap:
		default:
			return &ArgumentError{"unknown network backend: " + nic.Backend}
		}

		ids[nic.ID] = true
		slots[nic.Slot] = true
	}

	return nil
}

// numBridges returns the number of PCI bridges required for the NICs.
func (s *CommandSpec) numBridges() int {
	if len(s.NICs) == 0 {
		return 0
	}

	maxSlot := slices.MaxFunc(s.NICs, func(a, b NIC) int {
		return a.Slot - b.Slot
	}).Slot

	return maxSlot/nicsPerBridge + 1
}

// arguments compiles the argument list for the QEMU command.
func (s *CommandSpec) arguments() []Argument {
	args := []Argument{
		UniqueArg("machine", s.Machine),
		UniqueArg("smp", strconv.FormatUint(s.SMP, 10)),
		UniqueArg("m", strconv.FormatUint(s.Memory, 10)),
	}

	if s.CPU != "" {
		args = append(args, UniqueArg("cpu", s.CPU))
	}

	if !s.NoKVM {
		args = append(args, UniqueArg("enable-kvm"))
	}

	args = append(args,
		// Disable video output.
		UniqueArg("display", "none"),
		// Do not load any user config files.
		UniqueArg("no-user-config"),
		UniqueArg("serial", s.tcpServer(s.SerialPort)),
	)

	if s.MonitorPort != 0 {
		args = append(args, UniqueArg("monitor", s.tcpServer(s.MonitorPort)))
	} else {
		args = append(args, UniqueArg("monitor", "none"))
	}

	for _, drive := range s.Drives {
		args = append(args, drive.argument())
	}

	if s.CDROM != "" {
		args = append(args, UniqueArg("cdrom", s.CDROM))
	}

	args = append(args, UniqueArg("boot", "order=c"))

	for idx := 1; idx <= s.numBridges(); idx++ {
		args = append(args, RepeatableArg("device",
			"pci-bridge",
			"chassis_nr="+strconv.Itoa(idx),
			"id=pci."+strconv.Itoa(idx),
		))
	}

	nics := slices.Clone(s.NICs)
	slices.SortFunc(nics, func(a, b NIC) int {
		return a.Slot - b.Slot
	})

	for _, nic := range nics {
		args = append(args, nic.arguments()...)
	}

	return append(args, s.ExtraArgs...)
}

func (s *CommandSpec) tcpServer(port uint16) string {
	return fmt.Sprintf("tcp:%s:%d,server=on,wait=off", s.ListenAddress, port)
}
