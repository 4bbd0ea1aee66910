// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cloudinit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNoISOTool is returned if neither cloud-localds nor xorriso is found.
var ErrNoISOTool = errors.New("no seed image tool found")

// ISOTools are the tools tried in order to build the seed image.
var ISOTools = []string{"cloud-localds", "xorriso"}

// WriteISO builds a NoCloud seed image at path.
func (s Seed) WriteISO(ctx context.Context, path string) error {
	dir, err := os.MkdirTemp(filepath.Dir(path), ".seed-")
	if err != nil {
		return fmt.Errorf("create seed dir: %w", err)
	}
	defer os.RemoveAll(dir)

	files := map[string][]byte{
		"user-data": s.UserData,
		"meta-data": s.MetaData,
	}
	if s.NetworkConfig != nil {
		files["network-config"] = s.NetworkConfig
	}

	for name, content := range files {
		err := os.WriteFile(filepath.Join(dir, name), content, 0o600)
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	tool, args, err := s.isoCommand(dir, path)
	if err != nil {
		return err
	}

	slog.Debug("Build seed image",
		slog.String("tool", tool),
		slog.String("path", path))

	//nolint:gosec
	output, err := exec.CommandContext(ctx, tool, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(tool), err, output)
	}

	return nil
}

func (s Seed) isoCommand(dir, path string) (string, []string, error) {
	for _, name := range ISOTools {
		tool, err := exec.LookPath(name)
		if err != nil {
			continue
		}

		if name == "xorriso" {
			return tool, []string{
				"-as", "mkisofs",
				"-output", path,
				"-volid", "cidata",
				"-joliet", "-rock",
				dir,
			}, nil
		}

		args := []string{"-v"}
		if s.NetworkConfig != nil {
			args = append(args,
				"--network-config="+filepath.Join(dir, "network-config"))
		}

		args = append(args,
			path,
			filepath.Join(dir, "user-data"),
			filepath.Join(dir, "meta-data"),
		)

		return tool, args, nil
	}

	return "", nil, ErrNoISOTool
}
