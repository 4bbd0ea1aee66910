// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"time"

	"github.com/aibor/vrboot/internal/bundle"
	"github.com/aibor/vrboot/internal/profile"
)

// DefaultRetries is the number of attempts for boot and verification.
const DefaultRetries = 3

// Deadlines limit the time spent waiting in a state.
type Deadlines struct {
	// Boot is the time to wait for the login prompt per attempt.
	Boot time.Duration

	// Prompt is the time to wait for the guest to answer credentials.
	Prompt time.Duration

	// Directive is the time a single directive must be confirmed in.
	Directive time.Duration

	// Verify is the time to wait for the readiness milestone per attempt.
	Verify time.Duration
}

// Playbook describes how a guest is driven through its first boot.
type Playbook struct {
	Role     string
	Username string
	Password string

	// Patterns recognize the milestones. Login and shell patterns are
	// required.
	Patterns map[Milestone]*regexp.Regexp

	// Directives are sent in order once the session is authenticated.
	Directives []string

	// Probe is sent in [StateVerifying] and resent on each verification
	// retry. No probe is sent if empty.
	Probe string

	Deadlines Deadlines

	// Retries is the number of attempts for boot and verification.
	Retries int

	// LineEnding terminates everything sent to the console.
	LineEnding string
}

// patternKeys are the keys of pattern overrides.
var patternKeys = map[string]Milestone{
	"wake":     MilestoneWake,
	"login":    MilestoneLogin,
	"password": MilestonePassword,
	"shell":    MilestoneShell,
	"rejected": MilestoneRejected,
	"ready":    MilestoneReady,
}

// probeKey overrides the probe command.
const probeKey = "probe"

type familyDefaults struct {
	patterns   map[Milestone]string
	directives func(b bundle.Bundle) []string
	probe      string
	deadlines  Deadlines
}

var families = map[profile.Family]familyDefaults{
	profile.FamilyFirewall: {
		patterns: map[Milestone]string{
			MilestoneLogin:    `(?m)login:\s*$`,
			MilestonePassword: `(?mi)password:\s*$`,
			MilestoneShell:    `(?m)[$#%>] ?$`,
			MilestoneRejected: `(?i)login incorrect`,
			MilestoneReady:    `sshd is running`,
		},
		directives: func(b bundle.Bundle) []string {
			return []string{
				"sudo sysrc hostname=" + b.Hostname,
				"sudo hostname " + b.Hostname,
			}
		},
		probe: "service sshd status",
		deadlines: Deadlines{
			Boot:      5 * time.Minute,
			Prompt:    30 * time.Second,
			Directive: 30 * time.Second,
			Verify:    time.Minute,
		},
	},
	profile.FamilySDWAN: {
		patterns: map[Milestone]string{
			MilestoneWake:     `System Ready`,
			MilestoneLogin:    `(?m)login:\s*$`,
			MilestonePassword: `(?mi)password:\s*$`,
			MilestoneShell:    `(?m)# ?$`,
			MilestoneRejected: `(?i)(login incorrect|authentication failed)`,
			MilestoneReady:    `(?mi)^\s*personality:\s+v(manage|smart|bond|edge)`,
		},
		directives: func(b bundle.Bundle) []string {
			return []string{
				"config",
				"system host-name " + b.Hostname,
				"commit and-quit",
			}
		},
		probe: "show system status | include Personality",
		deadlines: Deadlines{
			Boot:      20 * time.Minute,
			Prompt:    time.Minute,
			Directive: time.Minute,
			Verify:    5 * time.Minute,
		},
	},
}

// NewPlaybook builds the playbook for the family of the profile.
//
// Patterns and the probe can be overridden by the bundle. The commands of the
// bundle are appended to the built-in directives.
func NewPlaybook(prof profile.Profile, b bundle.Bundle) (Playbook, error) {
	defaults, exists := families[prof.Family]
	if !exists {
		return Playbook{}, fmt.Errorf("%w: no defaults for family %s", ErrInvalidPlaybook, prof.Family)
	}

	sources := maps.Clone(defaults.patterns)
	probe := defaults.probe

	for _, key := range slices.Sorted(maps.Keys(b.Patterns)) {
		value := b.Patterns[key]

		if key == probeKey {
			probe = value
			continue
		}

		milestone, known := patternKeys[key]
		if !known {
			return Playbook{}, fmt.Errorf("%w: unknown pattern %q", ErrInvalidPlaybook, key)
		}

		sources[milestone] = value
	}

	patterns := make(map[Milestone]*regexp.Regexp, len(sources))

	for milestone, source := range sources {
		if source == "" {
			continue
		}

		re, err := regexp.Compile(source)
		if err != nil {
			return Playbook{}, fmt.Errorf("%w: %s pattern: %w", ErrInvalidPlaybook, milestone, err)
		}

		patterns[milestone] = re
	}

	directives := defaults.directives(b)
	directives = append(directives, b.Commands...)

	playbook := Playbook{
		Role:       string(prof.Role),
		Username:   b.Username,
		Password:   b.Password,
		Patterns:   patterns,
		Directives: directives,
		Probe:      probe,
		Deadlines:  defaults.deadlines,
		Retries:    DefaultRetries,
		LineEnding: "\r",
	}

	return playbook, playbook.Validate()
}

// Validate checks if the playbook can be run.
func (p Playbook) Validate() error {
	for _, required := range []Milestone{MilestoneLogin, MilestoneShell} {
		if p.Patterns[required] == nil {
			return fmt.Errorf("%w: no %s pattern", ErrInvalidPlaybook, required)
		}
	}

	if p.Retries < 1 {
		return fmt.Errorf("%w: retries must be at least 1", ErrInvalidPlaybook)
	}

	d := p.Deadlines
	if d.Boot <= 0 || d.Prompt <= 0 || d.Directive <= 0 || d.Verify <= 0 {
		return fmt.Errorf("%w: deadlines must be positive", ErrInvalidPlaybook)
	}

	return nil
}
