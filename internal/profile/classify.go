// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package profile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Rule maps an image name substring to a role.
type Rule struct {
	Substring string
	Role      Role
}

// Rules are applied in order. The first match wins. Matching is case
// insensitive and on the file name only.
var Rules = []Rule{
	{Substring: "manage", Role: RoleManager},
	{Substring: "smart", Role: RoleController},
	{Substring: "bond", Role: RoleValidator},
	{Substring: "freebsd", Role: RoleFirewall},
	{Substring: "firewall", Role: RoleFirewall},
}

// Classify returns the profile of the role the given image belongs to.
func Classify(image string) (Profile, error) {
	name := strings.ToLower(filepath.Base(image))

	for _, rule := range Rules {
		if strings.Contains(name, rule.Substring) {
			return Lookup(rule.Role)
		}
	}

	return Profile{}, fmt.Errorf("%w: %s", ErrUnrecognizedImage, filepath.Base(image))
}
