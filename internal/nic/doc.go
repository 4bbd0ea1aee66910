// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package nic maps externally exposed container interfaces onto guest NIC
// slots.
//
// Slot 0 is always the management slot. Data slots follow with ordinals
// 1..N in the order of their external port index, so the guest enumerates
// its interfaces in the same order the operator wired them.
package nic
