// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netdev

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned for an unknown connection mode.
var ErrUnknownMode = errors.New("unknown connection mode")

// Mode is the way a tap is connected to its container interface.
type Mode string

// Supported connection modes.
const (
	// ModeTC redirects all frames between tap and container interface with
	// tc mirred actions. Unlike a bridge, it passes link local protocols like
	// LACP and LLDP.
	ModeTC Mode = "tc"

	// ModeBridge puts tap and container interface into a dedicated bridge.
	ModeBridge Mode = "bridge"

	// ModeNone only creates the taps.
	ModeNone Mode = "none"
)

// String implements [fmt.Stringer].
func (m *Mode) String() string {
	return string(*m)
}

// Set implements [flag.Value].
func (m *Mode) Set(s string) error {
	switch Mode(s) {
	case ModeTC, ModeBridge, ModeNone:
		*m = Mode(s)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMode, s)
	}

	return nil
}

// Type implements [pflag.Value].
func (*Mode) Type() string {
	return "mode"
}
