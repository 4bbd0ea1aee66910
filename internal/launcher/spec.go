// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launcher

import (
	"fmt"
	"path/filepath"

	"github.com/aibor/vrboot/internal/netdev"
	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/aibor/vrboot/internal/qemu"
)

// Port bases. Instance i uses base+i.
const (
	ConsolePortBase = 5000
	MonitorPortBase = 4000
	ForwardPortBase = 2000
)

// Management network of the user mode NIC.
const (
	ManagementNet   = "10.0.0.0/24"
	ManagementGuest = "10.0.0.15"
)

// ForwardedPort is a guest management port reachable from the host.
type ForwardedPort struct {
	Protocol string
	Port     uint16
}

// ManagementPorts are the guest ports forwarded for every instance.
var ManagementPorts = []ForwardedPort{
	{"tcp", 22},
	{"tcp", 80},
	{"udp", 161},
	{"tcp", 443},
	{"tcp", 830},
}

// Resources requested for an instance.
type Resources struct {
	CPUs      uint64
	MemoryMiB uint64

	// Disks are sizes of additional empty data disks, like "50G". They are
	// attached as virtio disks in order.
	Disks []string
}

// InstanceSpec describes a single instance. It is immutable once created.
type InstanceSpec struct {
	Name  string
	Index int
	RunID string
	Role  profile.Role

	// Image is the read-only base image.
	Image string

	// Overlay is the copy-on-write layer the guest writes into.
	Overlay string

	// WorkDir holds all per-instance files.
	WorkDir string

	// Seed is an optional cloud-init seed image attached as cdrom. It is
	// owned by the instance and removed on termination.
	Seed string

	Resources Resources
	NICs      []nic.Descriptor

	ConsolePort uint16
	MonitorPort uint16
	Forwards    []qemu.HostForward

	// ConnectionMode for data NICs.
	ConnectionMode netdev.Mode

	NoKVM     bool
	ExtraArgs []qemu.Argument

	// KeepOverlay leaves the overlay and disks in place on termination.
	KeepOverlay bool
}

// NewInstanceSpec creates an [InstanceSpec] with paths and ports derived
// from the name and index.
func NewInstanceSpec(
	name string,
	index int,
	image string,
	workDir string,
	prof profile.Profile,
	descs []nic.Descriptor,
) InstanceSpec {
	resources := Resources{
		CPUs:      prof.CPUs,
		MemoryMiB: prof.MemoryMiB,
	}

	if prof.DataDisk != "" {
		resources.Disks = append(resources.Disks, prof.DataDisk)
	}

	return InstanceSpec{
		Name:           name,
		Index:          index,
		Role:           prof.Role,
		Image:          image,
		Overlay:        filepath.Join(workDir, name+"-overlay.qcow2"),
		WorkDir:        workDir,
		Resources:      resources,
		NICs:           descs,
		ConsolePort:    uint16(ConsolePortBase + index), //nolint:gosec
		MonitorPort:    uint16(MonitorPortBase + index), //nolint:gosec
		Forwards:       Forwards(index),
		ConnectionMode: netdev.ModeTC,
	}
}

// Forwards returns the management port forwards of instance index. Guest
// port p is reachable on host port 2000 + 100*index + p.
func Forwards(index int) []qemu.HostForward {
	forwards := make([]qemu.HostForward, 0, len(ManagementPorts))

	for _, port := range ManagementPorts {
		forwards = append(forwards, qemu.HostForward{
			Protocol:  port.Protocol,
			HostPort:  uint16(ForwardPortBase + 100*index + int(port.Port)), //nolint:gosec
			GuestAddr: ManagementGuest,
			GuestPort: port.Port,
		})
	}

	return forwards
}

// ForwardedPort returns the host port the guest TCP port is forwarded to.
func (s InstanceSpec) ForwardedPort(guestPort uint16) (uint16, bool) {
	for _, fwd := range s.Forwards {
		if fwd.GuestPort == guestPort && fwd.Protocol != "udp" {
			return fwd.HostPort, true
		}
	}

	return 0, false
}

// DiskPath returns the path of additional disk idx.
func (s InstanceSpec) DiskPath(idx int) string {
	return filepath.Join(s.WorkDir, fmt.Sprintf("%s-disk%d.qcow2", s.Name, idx))
}

// LogPath returns the path of the hypervisor log file.
func (s InstanceSpec) LogPath() string {
	return filepath.Join(s.WorkDir, s.Name+"-qemu.log")
}

// commandSpec builds the hypervisor invocation for the instance.
func (s InstanceSpec) commandSpec() qemu.CommandSpec {
	drives := []qemu.Drive{
		{File: s.Overlay, Interface: qemu.DriveIDE},
	}

	for idx := range s.Resources.Disks {
		drives = append(drives, qemu.Drive{
			File:      s.DiskPath(idx),
			Interface: qemu.DriveVirtio,
		})
	}

	nics := make([]qemu.NIC, 0, len(s.NICs))

	for _, desc := range s.NICs {
		n := qemu.NIC{
			ID:   desc.NetdevID(),
			MAC:  desc.MAC,
			Slot: desc.SlotOrdinal,
		}

		if desc.Management() {
			n.Backend = qemu.NetBackendUser
			n.Options = append(n.Options, "net="+ManagementNet)

			for _, fwd := range s.Forwards {
				n.Options = append(n.Options, fwd.String())
			}
		} else {
			n.Backend = qemu.NetBackendTap
			n.Options = []string{
				"ifname=" + desc.TapName,
				"script=no",
				"downscript=no",
			}
		}

		nics = append(nics, n)
	}

	spec := qemu.CommandSpec{
		SMP:         s.Resources.CPUs,
		Memory:      s.Resources.MemoryMiB,
		NoKVM:       s.NoKVM,
		Drives:      drives,
		CDROM:       s.Seed,
		NICs:        nics,
		SerialPort:  s.ConsolePort,
		MonitorPort: s.MonitorPort,
		ExtraArgs:   s.ExtraArgs,
	}

	return spec
}
