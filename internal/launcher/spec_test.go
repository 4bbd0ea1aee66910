// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launcher_test

import (
	"testing"

	"github.com/aibor/vrboot/internal/launcher"
	"github.com/aibor/vrboot/internal/netdev"
	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/aibor/vrboot/internal/qemu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstanceSpec(t *testing.T) {
	prof, err := profile.Lookup(profile.RoleValidator)
	require.NoError(t, err)

	descs, err := nic.Map(nic.Topology{MaxDataSlots: 8}, 5)
	require.NoError(t, err)

	spec := launcher.NewInstanceSpec("validator-2", 2, "/vbond.qcow2", "/work", prof, descs)

	assert.Equal(t, "/work/validator-2-overlay.qcow2", spec.Overlay)
	assert.Equal(t, "/work/validator-2-disk0.qcow2", spec.DiskPath(0))
	assert.Equal(t, "/work/validator-2-qemu.log", spec.LogPath())
	assert.Equal(t, uint16(5002), spec.ConsolePort)
	assert.Equal(t, uint16(4002), spec.MonitorPort)
	assert.Equal(t, netdev.ModeTC, spec.ConnectionMode)
	assert.Equal(t, uint64(2), spec.Resources.CPUs)
	assert.Equal(t, uint64(2048), spec.Resources.MemoryMiB)
	assert.Empty(t, spec.Resources.Disks)
	assert.Len(t, spec.NICs, 6)

	port, ok := spec.ForwardedPort(22)
	require.True(t, ok)
	assert.Equal(t, uint16(2222), port)

	_, ok = spec.ForwardedPort(161)
	assert.False(t, ok, "udp only")
}

func TestForwards(t *testing.T) {
	assert.Equal(t, []qemu.HostForward{
		{Protocol: "tcp", HostPort: 2122, GuestAddr: "10.0.0.15", GuestPort: 22},
		{Protocol: "tcp", HostPort: 2180, GuestAddr: "10.0.0.15", GuestPort: 80},
		{Protocol: "udp", HostPort: 2261, GuestAddr: "10.0.0.15", GuestPort: 161},
		{Protocol: "tcp", HostPort: 2543, GuestAddr: "10.0.0.15", GuestPort: 443},
		{Protocol: "tcp", HostPort: 2930, GuestAddr: "10.0.0.15", GuestPort: 830},
	}, launcher.Forwards(1))
}
