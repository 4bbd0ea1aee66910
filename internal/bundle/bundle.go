// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bundle

import (
	"maps"
	"net/netip"
	"slices"

	"github.com/aibor/vrboot/internal/profile"
)

// Default management addressing. The management NIC is attached to QEMU
// user networking, which serves 10.0.0.0/24 with the host at 10.0.0.2.
var (
	DefaultManagementAddress = netip.MustParsePrefix("10.0.0.15/24")
	DefaultManagementGateway = netip.MustParseAddr("10.0.0.2")
)

// Management is the management IP policy of the guest.
type Management struct {
	DHCP    bool
	Address netip.Prefix
	Gateway netip.Addr
}

// Bundle is the effective configuration of one instance.
//
// It is immutable once returned by [Resolve]. Slices and maps must not be
// modified by consumers.
type Bundle struct {
	Role       profile.Role
	Hostname   string
	Username   string
	Password   string
	Management Management
	NICs       int

	// Extra holds role specific fields, like the vendor personality.
	Extra map[string]string

	// Commands are additional console directives sent after the built-in
	// ones of the role.
	Commands []string

	// Patterns override milestone recognition patterns by milestone name.
	Patterns map[string]string

	FullDocument    []byte
	MinimalDocument []byte
	VendorDocument  []byte

	// Sources lists the names of the sources that contributed, in
	// precedence order.
	Sources []string
}

// Partial is one configuration source. Nil or empty fields are not set by
// the source.
type Partial struct {
	Source string

	Hostname *string
	Username *string
	Password *string

	ManagementDHCP    *bool
	ManagementAddress *netip.Prefix
	ManagementGateway *netip.Addr

	NICs *int

	Extra    map[string]string
	Commands []string
	Patterns map[string]string

	FullDocument    []byte
	MinimalDocument []byte
	VendorDocument  []byte

	// Exclusive marks the source irreconcilable with a full document.
	Exclusive bool

	// WritesVendorBootstrap is set if a full document writes the vendor
	// bootstrap file itself.
	WritesVendorBootstrap bool
}

// Empty returns true if the partial does not contribute anything.
func (p Partial) Empty() bool {
	return p.Hostname == nil &&
		p.Username == nil &&
		p.Password == nil &&
		p.ManagementDHCP == nil &&
		p.ManagementAddress == nil &&
		p.ManagementGateway == nil &&
		p.NICs == nil &&
		len(p.Extra) == 0 &&
		len(p.Commands) == 0 &&
		len(p.Patterns) == 0 &&
		p.FullDocument == nil &&
		p.MinimalDocument == nil &&
		p.VendorDocument == nil &&
		!p.Exclusive
}

// Defaults returns the built-in source for the given profile.
func Defaults(p profile.Profile) Partial {
	extra := map[string]string{}
	if p.Personality != "" {
		extra["personality"] = p.Personality
	}

	return Partial{
		Source:            "default",
		Hostname:          ptr(p.Hostname()),
		Username:          ptr(p.Username),
		Password:          ptr(p.Password),
		ManagementDHCP:    ptr(false),
		ManagementAddress: ptr(DefaultManagementAddress),
		ManagementGateway: ptr(DefaultManagementGateway),
		NICs:              ptr(p.DefaultNICs),
		Extra:             extra,
	}
}

// Reduce folds the partials into a bundle. Later partials take precedence.
func Reduce(partials ...Partial) Bundle {
	var b Bundle

	for _, p := range partials {
		b = apply(b, p)
	}

	return b
}

func apply(b Bundle, p Partial) Bundle {
	if p.Empty() {
		return b
	}

	b.Sources = append(slices.Clone(b.Sources), p.Source)

	set(&b.Hostname, p.Hostname)
	set(&b.Username, p.Username)
	set(&b.Password, p.Password)
	set(&b.Management.DHCP, p.ManagementDHCP)
	set(&b.Management.Address, p.ManagementAddress)
	set(&b.Management.Gateway, p.ManagementGateway)
	set(&b.NICs, p.NICs)

	b.Extra = mergeMap(b.Extra, p.Extra)
	b.Patterns = mergeMap(b.Patterns, p.Patterns)

	if len(p.Commands) > 0 {
		b.Commands = slices.Clone(p.Commands)
	}

	if p.FullDocument != nil {
		b.FullDocument = p.FullDocument
	}

	if p.MinimalDocument != nil {
		b.MinimalDocument = p.MinimalDocument
	}

	if p.VendorDocument != nil {
		b.VendorDocument = p.VendorDocument
	}

	return b
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func mergeMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}

	merged := maps.Clone(dst)
	if merged == nil {
		merged = make(map[string]string, len(src))
	}

	maps.Copy(merged, src)

	return merged
}

func ptr[T any](v T) *T {
	return &v
}
