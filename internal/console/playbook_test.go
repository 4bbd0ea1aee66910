// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console_test

import (
	"regexp"
	"testing"

	"github.com/aibor/vrboot/internal/bundle"
	"github.com/aibor/vrboot/internal/console"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlaybookDefaults(t *testing.T) {
	tests := []struct {
		role       profile.Role
		directives []string
		probe      string
		wake       bool
		ready      string
	}{
		{
			role: profile.RoleFirewall,
			directives: []string{
				"sudo sysrc hostname=freebsd",
				"sudo hostname freebsd",
			},
			probe: "service sshd status",
			wake:  false,
			ready: "sshd is running",
		},
		{
			role: profile.RoleManager,
			directives: []string{
				"config",
				"system host-name sdwan-manager",
				"commit and-quit",
			},
			probe: "show system status | include Personality",
			wake:  true,
			ready: "Personality:    vmanage",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			prof, err := profile.Lookup(tt.role)
			require.NoError(t, err)

			b, err := bundle.Resolve(prof, bundle.Inputs{})
			require.NoError(t, err)

			playbook, err := console.NewPlaybook(prof, b)
			require.NoError(t, err)

			assert.Equal(t, string(tt.role), playbook.Role)
			assert.Equal(t, "admin", playbook.Username)
			assert.Equal(t, tt.directives, playbook.Directives)
			assert.Equal(t, tt.probe, playbook.Probe)
			assert.Equal(t, console.DefaultRetries, playbook.Retries)
			assert.Equal(t, "\r", playbook.LineEnding)
			assert.Equal(t, tt.wake, playbook.Patterns[console.MilestoneWake] != nil)
			assert.Regexp(t, playbook.Patterns[console.MilestoneReady], tt.ready)
			assert.Regexp(t, playbook.Patterns[console.MilestoneLogin], "host login: ")
		})
	}
}

func TestNewPlaybookOverrides(t *testing.T) {
	prof, err := profile.Lookup(profile.RoleFirewall)
	require.NoError(t, err)

	b, err := bundle.Resolve(prof, bundle.Inputs{
		Flags: bundle.Partial{
			Commands: []string{"sudo service ntpd start"},
			Patterns: map[string]string{
				"shell": `(?m)> $`,
				"ready": "",
				"probe": "",
			},
		},
	})
	require.NoError(t, err)

	playbook, err := console.NewPlaybook(prof, b)
	require.NoError(t, err)

	assert.Equal(t, "sudo service ntpd start", playbook.Directives[2])
	assert.Equal(t, regexp.MustCompile(`(?m)> $`), playbook.Patterns[console.MilestoneShell])
	assert.Nil(t, playbook.Patterns[console.MilestoneReady])
	assert.Empty(t, playbook.Probe)
}

func TestNewPlaybookErrors(t *testing.T) {
	firewall, err := profile.Lookup(profile.RoleFirewall)
	require.NoError(t, err)

	tests := []struct {
		name     string
		prof     profile.Profile
		patterns map[string]string
	}{
		{
			name: "unknown family",
			prof: profile.Profile{Role: "other"},
		},
		{
			name:     "unknown pattern",
			prof:     firewall,
			patterns: map[string]string{"banner": "x"},
		},
		{
			name:     "invalid pattern",
			prof:     firewall,
			patterns: map[string]string{"login": "("},
		},
		{
			name:     "login disabled",
			prof:     firewall,
			patterns: map[string]string{"login": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := console.NewPlaybook(tt.prof, bundle.Bundle{Patterns: tt.patterns})
			assert.ErrorIs(t, err, console.ErrInvalidPlaybook)
		})
	}
}

func TestPlaybookValidate(t *testing.T) {
	valid := testPlaybook(t, profile.RoleFirewall, longDeadline)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(p *console.Playbook)
	}{
		{
			name:   "no shell pattern",
			modify: func(p *console.Playbook) { p.Patterns = nil },
		},
		{
			name:   "no retries",
			modify: func(p *console.Playbook) { p.Retries = 0 },
		},
		{
			name:   "zero deadline",
			modify: func(p *console.Playbook) { p.Deadlines.Verify = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playbook := testPlaybook(t, profile.RoleFirewall, longDeadline)
			tt.modify(&playbook)
			assert.ErrorIs(t, playbook.Validate(), console.ErrInvalidPlaybook)
		})
	}
}
