// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bundle_test

import (
	"net/netip"
	"testing"

	"github.com/aibor/vrboot/internal/bundle"
	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustProfile(t *testing.T, role profile.Role) profile.Profile {
	t.Helper()

	p, err := profile.Lookup(role)
	require.NoError(t, err)

	return p
}

func ptr[T any](v T) *T {
	return &v
}

var netipComparer = cmp.Options{
	cmp.Comparer(func(a, b netip.Prefix) bool { return a == b }),
	cmp.Comparer(func(a, b netip.Addr) bool { return a == b }),
	cmpopts.EquateEmpty(),
}

func TestResolveDefaults(t *testing.T) {
	b, err := bundle.Resolve(mustProfile(t, profile.RoleValidator), bundle.Inputs{})
	require.NoError(t, err)

	expected := bundle.Bundle{
		Role:     profile.RoleValidator,
		Hostname: "sdwan-validator",
		Username: "admin",
		Password: "admin",
		Management: bundle.Management{
			Address: bundle.DefaultManagementAddress,
			Gateway: bundle.DefaultManagementGateway,
		},
		NICs:    5,
		Extra:   map[string]string{"personality": "vbond"},
		Sources: []string{"default"},
	}

	if diff := cmp.Diff(expected, b, netipComparer); diff != "" {
		t.Errorf("bundle mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePrecedence(t *testing.T) {
	full := bundle.Partial{
		Source:   "full document",
		Hostname: ptr("from-full"),
		Username: ptr("full-user"),
		Password: ptr("full-pass"),
		NICs:     ptr(2),
	}
	minimal := bundle.Partial{
		Source:   "minimal document",
		Hostname: ptr("from-minimal"),
		Password: ptr("minimal-pass"),
	}
	flags := bundle.Partial{
		Source:   "flags",
		Hostname: ptr("from-flags"),
	}

	tests := []struct {
		name     string
		inputs   bundle.Inputs
		hostname string
		username string
		password string
		nics     int
	}{
		{
			name:     "defaults only",
			hostname: "sdwan-controller",
			username: "admin",
			password: "admin",
			nics:     5,
		},
		{
			name:     "full only",
			inputs:   bundle.Inputs{Full: full},
			hostname: "from-full",
			username: "full-user",
			password: "full-pass",
			nics:     2,
		},
		{
			name:     "minimal over full",
			inputs:   bundle.Inputs{Full: full, Minimal: minimal},
			hostname: "from-minimal",
			username: "full-user",
			password: "minimal-pass",
			nics:     2,
		},
		{
			name:     "flags over all",
			inputs:   bundle.Inputs{Full: full, Minimal: minimal, Flags: flags},
			hostname: "from-flags",
			username: "full-user",
			password: "minimal-pass",
			nics:     2,
		},
		{
			name:     "flags over default",
			inputs:   bundle.Inputs{Flags: flags},
			hostname: "from-flags",
			username: "admin",
			password: "admin",
			nics:     5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := bundle.Resolve(mustProfile(t, profile.RoleController), tt.inputs)
			require.NoError(t, err)

			assert.Equal(t, tt.hostname, b.Hostname, "hostname")
			assert.Equal(t, tt.username, b.Username, "username")
			assert.Equal(t, tt.password, b.Password, "password")
			assert.Equal(t, tt.nics, b.NICs, "nics")
		})
	}
}

func TestResolveUnionOfDisjointSources(t *testing.T) {
	gateway := netip.MustParseAddr("192.0.2.1")

	inputs := bundle.Inputs{
		Full: bundle.Partial{
			Source:       "full document",
			Username:     ptr("operator"),
			FullDocument: []byte("#cloud-config\n"),
		},
		Minimal: bundle.Partial{
			Source:            "minimal document",
			ManagementGateway: &gateway,
			Commands:          []string{"show version"},
			Extra:             map[string]string{"site": "42"},
		},
		Flags: bundle.Partial{
			Source: "flags",
			NICs:   ptr(3),
		},
	}

	b, err := bundle.Resolve(mustProfile(t, profile.RoleManager), inputs)
	require.NoError(t, err)

	expected := bundle.Bundle{
		Role:     profile.RoleManager,
		Hostname: "sdwan-manager",
		Username: "operator",
		Password: "admin",
		Management: bundle.Management{
			Address: bundle.DefaultManagementAddress,
			Gateway: gateway,
		},
		NICs:         3,
		Extra:        map[string]string{"personality": "vmanage", "site": "42"},
		Commands:     []string{"show version"},
		FullDocument: []byte("#cloud-config\n"),
		Sources:      []string{"default", "full document", "minimal document", "flags"},
	}

	if diff := cmp.Diff(expected, b, netipComparer); diff != "" {
		t.Errorf("bundle mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name        string
		role        profile.Role
		inputs      bundle.Inputs
		expectedErr error
	}{
		{
			name:        "too many nics",
			role:        profile.RoleValidator,
			inputs:      bundle.Inputs{Flags: bundle.Partial{NICs: ptr(9)}},
			expectedErr: nic.ErrInvalidTopology,
		},
		{
			name:        "negative nics",
			role:        profile.RoleValidator,
			inputs:      bundle.Inputs{Minimal: bundle.Partial{NICs: ptr(-1)}},
			expectedErr: nic.ErrInvalidTopology,
		},
		{
			name:        "firewall allows more nics",
			role:        profile.RoleFirewall,
			inputs:      bundle.Inputs{Flags: bundle.Partial{NICs: ptr(16)}},
			expectedErr: nil,
		},
		{
			name:        "empty password",
			role:        profile.RoleValidator,
			inputs:      bundle.Inputs{Flags: bundle.Partial{Password: ptr(" ")}},
			expectedErr: bundle.ErrInvalidPassword,
		},
		{
			name: "both documents write vendor bootstrap",
			role: profile.RoleValidator,
			inputs: bundle.Inputs{
				Full: bundle.Partial{
					FullDocument:          []byte("{}"),
					WritesVendorBootstrap: true,
				},
				Minimal: bundle.Partial{VendorDocument: []byte("<data/>")},
			},
			expectedErr: bundle.ErrConfigConflict,
		},
		{
			name: "exclusive minimal with full",
			role: profile.RoleFirewall,
			inputs: bundle.Inputs{
				Full:    bundle.Partial{FullDocument: []byte("{}")},
				Minimal: bundle.Partial{Exclusive: true},
			},
			expectedErr: bundle.ErrConfigConflict,
		},
		{
			name: "overlapping scalars do not conflict",
			role: profile.RoleFirewall,
			inputs: bundle.Inputs{
				Full:    bundle.Partial{Hostname: ptr("a"), FullDocument: []byte("{}")},
				Minimal: bundle.Partial{Hostname: ptr("b")},
			},
			expectedErr: nil,
		},
		{
			name: "static without address",
			role: profile.RoleFirewall,
			inputs: bundle.Inputs{
				Minimal: bundle.Partial{
					ManagementDHCP:    ptr(false),
					ManagementAddress: &netip.Prefix{},
				},
			},
			expectedErr: bundle.ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bundle.Resolve(mustProfile(t, tt.role), tt.inputs)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestReduceDoesNotAlias(t *testing.T) {
	extra := map[string]string{"a": "1"}
	first := bundle.Reduce(bundle.Partial{Source: "one", Extra: extra})
	second := bundle.Reduce(
		bundle.Partial{Source: "one", Extra: extra},
		bundle.Partial{Source: "two", Extra: map[string]string{"a": "2"}},
	)

	assert.Equal(t, "1", first.Extra["a"])
	assert.Equal(t, "2", second.Extra["a"])
	assert.Equal(t, "1", extra["a"])
}
