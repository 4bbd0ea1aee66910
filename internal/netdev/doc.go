// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package netdev connects guest NICs to container interfaces.
//
// Each data NIC is backed by a persistent tap device on the host. The tap is
// connected to the container interface of the same external port either by
// traffic control redirects in both directions or by a bridge.
package netdev
