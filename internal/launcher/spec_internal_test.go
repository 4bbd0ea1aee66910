// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launcher

import (
	"testing"

	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/aibor/vrboot/internal/qemu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceSpecCommandSpec(t *testing.T) {
	prof, err := profile.Lookup(profile.RoleManager)
	require.NoError(t, err)

	descs, err := nic.Map(nic.Topology{MaxDataSlots: 8}, 1)
	require.NoError(t, err)

	spec := NewInstanceSpec("manager-0", 0, "/vmanage.qcow2", "/work", prof, descs)
	spec.Seed = "/work/seed.iso"

	cmdSpec := spec.commandSpec()

	assert.Equal(t, uint64(4), cmdSpec.SMP)
	assert.Equal(t, uint64(16384), cmdSpec.Memory)
	assert.Equal(t, "/work/seed.iso", cmdSpec.CDROM)
	assert.Equal(t, uint16(5000), cmdSpec.SerialPort)
	assert.Equal(t, uint16(4000), cmdSpec.MonitorPort)
	assert.Equal(t, []qemu.Drive{
		{File: "/work/manager-0-overlay.qcow2", Interface: qemu.DriveIDE},
		{File: "/work/manager-0-disk0.qcow2", Interface: qemu.DriveVirtio},
	}, cmdSpec.Drives)

	require.Len(t, cmdSpec.NICs, 2)

	mgmt := cmdSpec.NICs[0]
	assert.Equal(t, "p00", mgmt.ID)
	assert.Equal(t, qemu.NetBackendUser, mgmt.Backend)
	assert.Equal(t, "net=10.0.0.0/24", mgmt.Options[0])
	assert.Contains(t, mgmt.Options, "hostfwd=tcp::2022-10.0.0.15:22")
	assert.Contains(t, mgmt.Options, "hostfwd=udp::2161-10.0.0.15:161")

	data := cmdSpec.NICs[1]
	assert.Equal(t, "p01", data.ID)
	assert.Equal(t, 1, data.Slot)
	assert.Equal(t, qemu.NetBackendTap, data.Backend)
	assert.Equal(t, []string{"ifname=p01", "script=no", "downscript=no"}, data.Options)
	assert.Equal(t, descs[1].MAC, data.MAC)

	cmdSpec.Executable = "qemu-system-x86_64"
	assert.NoError(t, cmdSpec.Validate())
}
