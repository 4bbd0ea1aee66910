// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cloudinit

import (
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aibor/vrboot/internal/bundle"
	"github.com/aibor/vrboot/internal/profile"
)

// ErrNoTemplate is returned if a role has no built-in bootstrap template.
var ErrNoTemplate = errors.New("no bootstrap template")

//go:embed templates/*.xml
var templates embed.FS

// Seed holds the documents of a NoCloud seed.
type Seed struct {
	UserData      []byte
	MetaData      []byte
	NetworkConfig []byte
}

// Options for [Render].
type Options struct {
	Profile    profile.Profile
	Bundle     bundle.Bundle
	InstanceID string

	// ManagementInterface is the guest name of the management NIC.
	ManagementInterface string
}

// Render builds the seed for the role family of the profile.
func Render(opts Options) (Seed, error) {
	seed := Seed{
		MetaData: []byte(fmt.Sprintf(
			"instance-id: %s\nlocal-hostname: %s\n",
			opts.InstanceID,
			opts.Bundle.Hostname,
		)),
	}

	var err error

	switch opts.Profile.Family {
	case profile.FamilySDWAN:
		seed.UserData, err = sdwanUserData(opts)
	case profile.FamilyFirewall:
		seed.UserData, err = firewallUserData(opts)
		if err == nil {
			seed.NetworkConfig, err = firewallNetworkConfig(opts)
		}
	default:
		err = fmt.Errorf("%w: family %s", ErrNoTemplate, opts.Profile.Family)
	}

	if err != nil {
		return Seed{}, err
	}

	return seed, nil
}

// sdwanUserData uses a full document verbatim. Otherwise it generates the
// vendor bootstrap from the mounted vendor document or the role template.
func sdwanUserData(opts Options) ([]byte, error) {
	b := opts.Bundle

	if b.FullDocument != nil {
		return b.FullDocument, nil
	}

	vendorDoc := string(b.VendorDocument)
	if b.VendorDocument == nil {
		tmpl, err := templates.ReadFile("templates/" + string(opts.Profile.Role) + ".xml")
		if err != nil {
			return nil, fmt.Errorf("%w: role %s", ErrNoTemplate, opts.Profile.Role)
		}

		vendorDoc = expandTemplate(string(tmpl), templateVars(b))
	}

	personality := b.Extra["personality"]
	if personality == "" {
		personality = opts.Profile.Personality
	}

	ud := UserData{}

	if opts.Profile.DataDisk != "" {
		ud.DiskSetup = map[string]DiskSetup{
			"/dev/vda": {TableType: "mbr"},
		}
		ud.FSSetup = []FSSetup{{
			Device:     "/dev/vda",
			Label:      "data",
			Partition:  "none",
			Filesystem: "ext4",
		}}
		ud.Mounts = [][]string{{"/dev/vda", "/opt/data"}}
		ud.WriteFiles = append(ud.WriteFiles, WriteFile{
			Path:        "/opt/web-app/etc/persona",
			Owner:       "vmanage:vmanage-admin",
			Permissions: "0644",
			Content:     `{"persona":"COMPUTE_AND_DATA"}`,
		})
	}

	ud.WriteFiles = append(ud.WriteFiles,
		WriteFile{Path: "/etc/default/personality", Content: personality + "\n"},
		WriteFile{Path: "/etc/default/inited", Content: "1\n"},
		WriteFile{Path: "/usr/share/viptela/symantec-root-ca.crt"},
		WriteFile{Path: bundle.VendorBootstrapPath, Content: vendorDoc},
	)

	return ud.Render()
}

// firewallUserData generates the bootstrap user and deep merges a full
// document on top of it.
func firewallUserData(opts Options) ([]byte, error) {
	b := opts.Bundle
	unlocked := false
	enabled := true
	keepRoot := false

	ud := UserData{
		Hostname: b.Hostname,
		FQDN:     b.Hostname,
		Users: []User{{
			Name:            b.Username,
			Sudo:            "ALL=(ALL) NOPASSWD: ALL",
			Groups:          "wheel",
			Home:            "/usr/home/" + b.Username,
			Shell:           "/bin/tcsh",
			PlainTextPasswd: b.Password,
			LockPasswd:      &unlocked,
		}},
		SSHPwauth:   &enabled,
		DisableRoot: &keepRoot,
		Timezone:    "UTC",
		RunCommands: []string{
			// Run cloud-init on first boot only.
			`sed -i '' '/cloudinit_enable="YES"/s/YES/NONE/' /etc/rc.conf`,
		},
	}

	rendered, err := ud.Render()
	if err != nil {
		return nil, err
	}

	if b.FullDocument == nil {
		return rendered, nil
	}

	merged, err := Merge(rendered, b.FullDocument)
	if err != nil {
		return nil, fmt.Errorf("merge full document: %w", err)
	}

	return merged, nil
}

func firewallNetworkConfig(opts Options) ([]byte, error) {
	mgmt := opts.Bundle.Management

	iface := opts.ManagementInterface
	if iface == "" {
		iface = fmt.Sprintf(opts.Profile.SlotFormat, 0)
	}

	eth := Ethernet{DHCP4: mgmt.DHCP}
	if !mgmt.DHCP {
		eth.Addresses = []string{mgmt.Address.String()}
		if mgmt.Gateway.IsValid() {
			eth.Gateway4 = mgmt.Gateway.String()
		}
	}

	nc := NetworkConfig{
		Version: 2,
		Ethernets: map[string]Ethernet{
			iface: eth,
		},
	}

	return nc.Render()
}

func templateVars(b bundle.Bundle) map[string]string {
	vars := map[string]string{
		"hostname": b.Hostname,
		"username": b.Username,
		"password": b.Password,
	}

	if b.Management.Address.IsValid() {
		vars["mgmt_ip"] = b.Management.Address.Addr().String()
		vars["mgmt_prefix"] = strconv.Itoa(b.Management.Address.Bits())
	}

	if b.Management.Gateway.IsValid() {
		vars["mgmt_gw"] = b.Management.Gateway.String()
	}

	return vars
}

// expandTemplate replaces "{{ key }}" placeholders literally.
func expandTemplate(tmpl string, vars map[string]string) string {
	oldnew := make([]string, 0, 2*len(vars))
	for key, value := range vars {
		oldnew = append(oldnew, "{{ "+key+" }}", value)
	}

	return strings.NewReplacer(oldnew...).Replace(tmpl)
}
