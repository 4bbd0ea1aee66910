// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu provides utilities for composing and running QEMU system
// virtualization commands for appliance images. It expects the required QEMU
// binaries to be present on the system.
//
// The guest is expected to boot from a disk image attached as IDE drive and
// to provide its serial console on the first serial port. The serial port is
// exposed as TCP server, so the console can be attached to and detached from
// without affecting the guest.
package qemu
