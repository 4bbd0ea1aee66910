// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cloudinit renders the NoCloud seed that carries the first boot
// configuration into the guest.
package cloudinit
