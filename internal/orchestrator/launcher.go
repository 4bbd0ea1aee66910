// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import (
	"context"
	"io"

	"github.com/aibor/vrboot/internal/launcher"
)

// Instance is a launched VM.
type Instance interface {
	Console() io.ReadWriteCloser
	Done() <-chan struct{}
	Err() error
	Terminate(ctx context.Context) error
}

// Launcher launches instances.
type Launcher interface {
	Launch(ctx context.Context, spec launcher.InstanceSpec) (Instance, error)
}

// HostLauncher adapts a [launcher.Launcher] to [Launcher].
type HostLauncher struct {
	Launcher *launcher.Launcher
}

// Launch implements [Launcher].
func (h HostLauncher) Launch(ctx context.Context, spec launcher.InstanceSpec) (Instance, error) {
	inst, err := h.Launcher.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}

	return inst, nil
}
