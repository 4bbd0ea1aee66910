// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"os"
)

// KVMDevice is the path of the KVM device.
var KVMDevice = "/dev/kvm"

// KVMAvailable checks if KVM support is available on the host.
func KVMAvailable() bool {
	f, err := os.OpenFile(KVMDevice, os.O_WRONLY, 0)
	if err != nil {
		return false
	}

	_ = f.Close()

	return true
}
