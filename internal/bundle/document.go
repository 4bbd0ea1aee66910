// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"strings"

	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// Mounted document names relative to the config directory.
const (
	FullDocumentName    = "cloud-init.yaml"
	MinimalDocumentName = "bootstrap.yaml"
	VendorDocumentName  = "zcloud.xml"
)

// VendorBootstrapPath is the guest path the vendor bootstrap document is
// written to.
const VendorBootstrapPath = "/etc/confd/init/zcloud.xml"

// minimalDocument is the schema of the minimal document. Unknown keys are
// rejected.
type minimalDocument struct {
	Hostname   string            `json:"hostname,omitempty"`
	Username   string            `json:"username,omitempty"`
	Password   string            `json:"password,omitempty"`
	NICs       *int              `json:"nics,omitempty"`
	Management *minimalMgmt      `json:"management,omitempty"`
	Commands   []string          `json:"commands,omitempty"`
	Patterns   map[string]string `json:"patterns,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
	Exclusive  bool              `json:"exclusive,omitempty"`
}

type minimalMgmt struct {
	DHCP    *bool  `json:"dhcp,omitempty"`
	Address string `json:"address,omitempty"`
	Gateway string `json:"gateway,omitempty"`
}

// LoadDocuments reads the optional mounted documents from fsys.
//
// The vendor bootstrap document is part of the minimal source.
func LoadDocuments(fsys fs.FS) (Inputs, error) {
	var in Inputs

	data, err := readOptional(fsys, FullDocumentName)
	if err != nil {
		return Inputs{}, err
	}

	if data != nil {
		in.Full, err = ParseFull(data)
		if err != nil {
			return Inputs{}, fmt.Errorf("%s: %w", FullDocumentName, err)
		}
	}

	data, err = readOptional(fsys, MinimalDocumentName)
	if err != nil {
		return Inputs{}, err
	}

	if data != nil {
		in.Minimal, err = ParseMinimal(data)
		if err != nil {
			return Inputs{}, fmt.Errorf("%s: %w", MinimalDocumentName, err)
		}
	}

	data, err = readOptional(fsys, VendorDocumentName)
	if err != nil {
		return Inputs{}, err
	}

	if data != nil {
		in.Minimal.Source = "minimal document"
		in.Minimal.VendorDocument = data
	}

	return in, nil
}

func readOptional(fsys fs.FS, name string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return data, nil
}

// ParseFull parses a full cloud-config document.
//
// The document is kept verbatim. Hostname, the first user's name and its
// plain text password are extracted as fields.
func ParseFull(data []byte) (Partial, error) {
	var doc map[string]any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return Partial{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	partial := Partial{
		Source:       "full document",
		FullDocument: data,
	}

	if hostname, ok := doc["hostname"].(string); ok && hostname != "" {
		partial.Hostname = &hostname
	}

	users, _ := doc["users"].([]any)
	for _, entry := range users {
		user, ok := entry.(map[string]any)
		if !ok {
			// "default" entries refer to the distribution's default user.
			continue
		}

		if name, ok := user["name"].(string); ok && name != "" {
			partial.Username = &name
		}

		if passwd, ok := user["plain_text_passwd"].(string); ok && passwd != "" {
			partial.Password = &passwd
		}

		break
	}

	files, _ := doc["write_files"].([]any)
	for _, entry := range files {
		file, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		if path, _ := file["path"].(string); path == VendorBootstrapPath {
			partial.WritesVendorBootstrap = true
		}
	}

	return partial, nil
}

// ParseMinimal parses the minimal document with strict schema checks.
func ParseMinimal(data []byte) (Partial, error) {
	var doc minimalDocument

	err := k8syaml.UnmarshalStrict(data, &doc)
	if err != nil {
		return Partial{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	partial := Partial{
		Source:          "minimal document",
		NICs:            doc.NICs,
		Commands:        doc.Commands,
		Patterns:        doc.Patterns,
		Extra:           doc.Extra,
		Exclusive:       doc.Exclusive,
		MinimalDocument: data,
	}

	partial.Hostname = nonEmpty(doc.Hostname)
	partial.Username = nonEmpty(doc.Username)
	partial.Password = nonEmpty(doc.Password)

	if doc.Management != nil {
		err := parseManagement(&partial, doc.Management)
		if err != nil {
			return Partial{}, err
		}
	}

	return partial, nil
}

func parseManagement(partial *Partial, mgmt *minimalMgmt) error {
	partial.ManagementDHCP = mgmt.DHCP

	if mgmt.Address != "" {
		prefix, err := netip.ParsePrefix(mgmt.Address)
		if err != nil {
			return fmt.Errorf("%w: management address: %w", ErrInvalidDocument, err)
		}

		partial.ManagementAddress = &prefix
	}

	if mgmt.Gateway != "" {
		addr, err := netip.ParseAddr(mgmt.Gateway)
		if err != nil {
			return fmt.Errorf("%w: management gateway: %w", ErrInvalidDocument, err)
		}

		partial.ManagementGateway = &addr
	}

	return nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	return &s
}
