// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Instance is a running VM.
type Instance struct {
	spec        InstanceSpec
	gracePeriod time.Duration

	process Process
	console io.ReadWriteCloser
	closers []io.Closer
	disks   []string
	files   []string

	terminateOnce sync.Once
	terminateErr  error
}

// Spec returns the InstanceSpec the instance was launched with.
func (i *Instance) Spec() InstanceSpec {
	return i.spec
}

// Console returns the console byte stream of the guest.
func (i *Instance) Console() io.ReadWriteCloser {
	return i.console
}

// Alive returns true as long as the hypervisor process is running.
func (i *Instance) Alive() bool {
	return i.process != nil && i.process.Alive()
}

// Done returns a channel that is closed once the hypervisor exited.
func (i *Instance) Done() <-chan struct{} {
	if i.process == nil {
		done := make(chan struct{})
		close(done)

		return done
	}

	return i.process.Done()
}

// Err returns the exit error of the hypervisor, if any.
func (i *Instance) Err() error {
	if i.process == nil {
		return nil
	}

	return i.process.Err()
}

// Terminate stops the hypervisor and releases all resources of the
// instance. Only the first call has an effect, later calls return the
// result of the first one.
func (i *Instance) Terminate(ctx context.Context) error {
	i.terminateOnce.Do(func() {
		i.terminateErr = i.terminate(ctx)
	})

	return i.terminateErr
}

func (i *Instance) terminate(ctx context.Context) error {
	var errs []error

	if i.console != nil {
		_ = i.console.Close()
	}

	if i.process != nil && i.process.Alive() {
		err := i.process.Terminate(ctx, i.gracePeriod)
		if err != nil {
			errs = append(errs, fmt.Errorf("terminate hypervisor: %w", err))
		}
	}

	for _, closer := range i.closers {
		err := closer.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	remove := i.files
	if !i.spec.KeepOverlay {
		remove = append(remove, i.disks...)
	}

	for _, path := range remove {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}

	slog.Debug("Instance terminated",
		slog.String("instance", i.spec.Name),
		slog.Bool("overlay_kept", i.spec.KeepOverlay))

	return errors.Join(errs...)
}
