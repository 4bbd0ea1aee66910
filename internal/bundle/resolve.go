// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bundle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/profile"
)

var (
	// ErrConfigConflict is returned if two sources are irreconcilable.
	ErrConfigConflict = errors.New("config conflict")

	// ErrInvalidPassword is returned if the effective password is empty.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidDocument is returned if a mounted document can not be used.
	ErrInvalidDocument = errors.New("invalid document")
)

// Inputs are the non-default configuration sources of an instance.
type Inputs struct {
	Full    Partial
	Minimal Partial
	Flags   Partial
}

// Resolve computes the effective [Bundle] for the given profile.
//
// Precedence is flags over minimal document over full document over the
// profile defaults. Scalar fields of a higher precedence source silently
// replace lower ones. Only sources that are irreconcilable by construction
// fail with [ErrConfigConflict].
func Resolve(p profile.Profile, in Inputs) (Bundle, error) {
	err := checkConflicts(in)
	if err != nil {
		return Bundle{}, err
	}

	b := Reduce(Defaults(p), in.Full, in.Minimal, in.Flags)
	b.Role = p.Role

	if b.NICs < 0 || b.NICs > p.MaxNICs {
		return Bundle{}, fmt.Errorf(
			"%w: %d NICs for role %s, maximum is %d",
			nic.ErrInvalidTopology,
			b.NICs,
			p.Role,
			p.MaxNICs,
		)
	}

	if strings.TrimSpace(b.Password) == "" {
		return Bundle{}, fmt.Errorf("%w: must not be empty", ErrInvalidPassword)
	}

	if b.Hostname == "" {
		b.Hostname = p.Hostname()
	}

	if !b.Management.DHCP && !b.Management.Address.IsValid() {
		return Bundle{}, fmt.Errorf(
			"%w: management address required without dhcp",
			ErrInvalidDocument,
		)
	}

	return b, nil
}

func checkConflicts(in Inputs) error {
	if in.Full.WritesVendorBootstrap && in.Minimal.VendorDocument != nil {
		return fmt.Errorf(
			"%w: %s writes the vendor bootstrap file and %s is mounted",
			ErrConfigConflict,
			FullDocumentName,
			VendorDocumentName,
		)
	}

	if in.Minimal.Exclusive && in.Full.FullDocument != nil {
		return fmt.Errorf(
			"%w: %s is marked exclusive but %s is mounted",
			ErrConfigConflict,
			MinimalDocumentName,
			FullDocumentName,
		)
	}

	return nil
}
