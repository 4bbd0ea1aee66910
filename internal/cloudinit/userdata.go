// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cloudinit

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

const header = "#cloud-config\n"

// User is a cloud-init user entry.
type User struct {
	Name            string `json:"name"`
	Sudo            string `json:"sudo,omitempty"`
	Groups          string `json:"groups,omitempty"`
	Home            string `json:"home,omitempty"`
	Shell           string `json:"shell,omitempty"`
	PlainTextPasswd string `json:"plain_text_passwd,omitempty"`
	LockPasswd      *bool  `json:"lock_passwd,omitempty"`
}

// WriteFile is a cloud-init write_files entry.
type WriteFile struct {
	Path        string `json:"path"`
	Owner       string `json:"owner,omitempty"`
	Permissions string `json:"permissions,omitempty"`
	Content     string `json:"content"`
}

// DiskSetup is a cloud-init disk_setup entry.
type DiskSetup struct {
	TableType string `json:"table_type"`
	Layout    bool   `json:"layout"`
	Overwrite bool   `json:"overwrite"`
}

// FSSetup is a cloud-init fs_setup entry.
type FSSetup struct {
	Device     string `json:"device"`
	Label      string `json:"label"`
	Partition  string `json:"partition"`
	Filesystem string `json:"filesystem"`
	Overwrite  bool   `json:"overwrite"`
}

// UserData is the subset of cloud-config the generated seeds use.
type UserData struct {
	Hostname    string               `json:"hostname,omitempty"`
	FQDN        string               `json:"fqdn,omitempty"`
	Users       []User               `json:"users,omitempty"`
	SSHPwauth   *bool                `json:"ssh_pwauth,omitempty"`
	DisableRoot *bool                `json:"disable_root,omitempty"`
	Timezone    string               `json:"timezone,omitempty"`
	DiskSetup   map[string]DiskSetup `json:"disk_setup,omitempty"`
	FSSetup     []FSSetup            `json:"fs_setup,omitempty"`
	Mounts      [][]string           `json:"mounts,omitempty"`
	WriteFiles  []WriteFile          `json:"write_files,omitempty"`
	RunCommands []string             `json:"runcmd,omitempty"`
}

// Render returns the cloud-config document.
func (ud UserData) Render() ([]byte, error) {
	b, err := yaml.Marshal(ud)
	if err != nil {
		return nil, fmt.Errorf("render user data: %w", err)
	}

	return append([]byte(header), b...), nil
}

// Ethernet is a network config v2 ethernet entry.
type Ethernet struct {
	DHCP4     bool     `json:"dhcp4,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
	Gateway4  string   `json:"gateway4,omitempty"`
}

// NetworkConfig is a network config version 2 document.
type NetworkConfig struct {
	Version   int                 `json:"version"`
	Ethernets map[string]Ethernet `json:"ethernets"`
}

// Render returns the network config document.
func (nc NetworkConfig) Render() ([]byte, error) {
	b, err := yaml.Marshal(nc)
	if err != nil {
		return nil, fmt.Errorf("render network config: %w", err)
	}

	return b, nil
}
