// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package profile classifies base images into roles and provides the
// per-role defaults.
package profile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnrecognizedImage is returned if no rule matches the image name.
	ErrUnrecognizedImage = errors.New("unrecognized image")

	// ErrUnknownRole is returned for role names outside of the closed set.
	ErrUnknownRole = errors.New("unknown role")
)

// Role is the functional identity of an appliance.
type Role string

// Known roles.
const (
	RoleFirewall   Role = "firewall"
	RoleManager    Role = "manager"
	RoleController Role = "controller"
	RoleValidator  Role = "validator"
)

// Roles returns all known roles.
func Roles() []Role {
	return []Role{RoleFirewall, RoleManager, RoleController, RoleValidator}
}

// String implements [fmt.Stringer].
func (r *Role) String() string {
	return string(*r)
}

// Set implements [flag.Value].
func (r *Role) Set(s string) error {
	role := Role(strings.ToLower(s))
	if !slices.Contains(Roles(), role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, s)
	}

	*r = role

	return nil
}

// Type implements [pflag.Value].
func (*Role) Type() string {
	return "role"
}

// Family groups roles that share boot behavior.
type Family string

// Known families.
const (
	FamilyFirewall Family = "firewall"
	FamilySDWAN    Family = "sdwan"
)

// Profile holds the defaults of a role.
type Profile struct {
	Role   Role
	Family Family

	// CPUs is the number of vCPUs.
	CPUs uint64

	// MemoryMiB is the guest RAM in MiB.
	MemoryMiB uint64

	// DataDisk is the size of an additional data disk in qemu-img notation.
	// Empty means no data disk.
	DataDisk string

	// HostnameTemplate may contain "{role}".
	HostnameTemplate string

	DefaultNICs int
	MaxNICs     int

	// SlotFormat is the guest interface naming scheme.
	SlotFormat string

	// Personality is the vendor name of the role written into the seed.
	Personality string

	Username string
	Password string
}

// Hostname returns the default hostname of the role.
func (p Profile) Hostname() string {
	return strings.ReplaceAll(p.HostnameTemplate, "{role}", string(p.Role))
}

const (
	defaultUsername = "admin"
	defaultPassword = "admin"
)

var profiles = map[Role]Profile{
	RoleFirewall: {
		Role:             RoleFirewall,
		Family:           FamilyFirewall,
		CPUs:             1,
		MemoryMiB:        512,
		HostnameTemplate: "freebsd",
		DefaultNICs:      16,
		MaxNICs:          16,
		SlotFormat:       "vtnet%d",
		Username:         defaultUsername,
		Password:         defaultPassword,
	},
	RoleManager: {
		Role:             RoleManager,
		Family:           FamilySDWAN,
		CPUs:             4,
		MemoryMiB:        16384,
		DataDisk:         "50G",
		HostnameTemplate: "sdwan-{role}",
		DefaultNICs:      5,
		MaxNICs:          8,
		SlotFormat:       "eth%d",
		Personality:      "vmanage",
		Username:         defaultUsername,
		Password:         defaultPassword,
	},
	RoleController: {
		Role:             RoleController,
		Family:           FamilySDWAN,
		CPUs:             2,
		MemoryMiB:        4096,
		HostnameTemplate: "sdwan-{role}",
		DefaultNICs:      5,
		MaxNICs:          8,
		SlotFormat:       "eth%d",
		Personality:      "vsmart",
		Username:         defaultUsername,
		Password:         defaultPassword,
	},
	RoleValidator: {
		Role:             RoleValidator,
		Family:           FamilySDWAN,
		CPUs:             2,
		MemoryMiB:        2048,
		HostnameTemplate: "sdwan-{role}",
		DefaultNICs:      5,
		MaxNICs:          8,
		SlotFormat:       "eth%d",
		Personality:      "vbond",
		Username:         defaultUsername,
		Password:         defaultPassword,
	},
}

// Lookup returns the profile of the given role.
func Lookup(role Role) (Profile, error) {
	p, exists := profiles[role]
	if !exists {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	return p, nil
}
