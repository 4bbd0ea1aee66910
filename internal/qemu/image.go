// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
)

const defaultImageExecutable = "qemu-img"

// ImageTool creates disk images with qemu-img.
type ImageTool struct {
	// Path to the qemu-img binary.
	Executable string
}

// CreateOverlay creates a qcow2 overlay at path that is backed by the image
// base. The base image is never written to, so it can back any number of
// overlays at the same time.
func (t ImageTool) CreateOverlay(ctx context.Context, base, backingFormat, path string) error {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("base image path: %w", err)
	}

	if backingFormat == "" {
		backingFormat = "qcow2"
	}

	return t.run(ctx,
		"create",
		"-f", "qcow2",
		"-F", backingFormat,
		"-b", absBase,
		path,
	)
}

// CreateDisk creates an empty qcow2 disk of the given size, like "50G".
func (t ImageTool) CreateDisk(ctx context.Context, path, size string) error {
	return t.run(ctx, "create", "-f", "qcow2", path, size)
}

func (t ImageTool) executable() string {
	if t.Executable == "" {
		return defaultImageExecutable
	}

	return t.Executable
}

func (t ImageTool) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, t.executable(), args...)

	slog.DebugContext(ctx, "Run qemu-img", slog.String("command", cmd.String()))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &CommandError{
			Err: fmt.Errorf("%s %s: %w: %s", t.executable(), args[0], err, output),
		}
	}

	return nil
}
