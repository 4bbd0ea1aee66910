// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aibor/vrboot/internal/cloudinit"
	"github.com/aibor/vrboot/internal/console"
	"github.com/aibor/vrboot/internal/diag"
	"github.com/aibor/vrboot/internal/launcher"
	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/probe"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSSHProbeTimeout = 5 * time.Minute
	sshPort                = 22
)

// SeedWriter writes the seed image of an instance.
type SeedWriter func(ctx context.Context, seed cloudinit.Seed, path string) error

// Orchestrator runs instances.
type Orchestrator struct {
	Launcher Launcher

	// Observer is notified about console session progress. Optional.
	Observer console.Observer

	// WriteSeed defaults to [cloudinit.Seed.WriteISO].
	WriteSeed SeedWriter

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates an [Orchestrator] for the given launcher.
func New(l Launcher) *Orchestrator {
	return &Orchestrator{
		Launcher: l,
	}
}

// Run boots all instances of cfg and keeps them running until ctx is
// canceled.
//
// All plans are computed first, so invalid input fails before any hypervisor
// is started. Instances then run independently: the failure of one instance
// does not stop the others, unless [Config.FailFast] is set. Run returns once
// all instances finished and returns the errors of all failed instances
// joined.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) error {
	plans, err := NewPlans(cfg)
	if err != nil {
		return err
	}

	ctx, stopAll := context.WithCancel(ctx)
	defer stopAll()

	ctxs := make([]context.Context, len(plans))

	o.mu.Lock()

	if o.cancels == nil {
		o.cancels = make(map[string]context.CancelFunc, len(plans))
	}

	for idx, plan := range plans {
		var cancel context.CancelFunc

		ctxs[idx], cancel = context.WithCancel(ctx)
		o.cancels[plan.Name()] = cancel
	}

	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		defer o.mu.Unlock()

		for _, plan := range plans {
			o.cancels[plan.Name()]()
			delete(o.cancels, plan.Name())
		}
	}()

	var group errgroup.Group

	errs := make([]error, len(plans))

	for idx, plan := range plans {
		group.Go(func() error {
			err := o.runInstance(ctxs[idx], cfg, plan)
			if err == nil {
				return nil
			}

			errs[idx] = fmt.Errorf("%s: %w", plan.Name(), err)

			slog.Error("Instance failed",
				slog.String("instance", plan.Name()),
				slog.String("role", string(plan.Spec.Role)),
				slog.Any("error", err))

			if cfg.FailFast {
				slog.Info("Stopping all instances")
				stopAll()
			}

			return nil
		})
	}

	_ = group.Wait()

	return errors.Join(errs...)
}

// Stop stops the named instance. It returns false if no such instance is
// running.
func (o *Orchestrator) Stop(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	cancel, exists := o.cancels[name]
	if exists {
		cancel()
	}

	return exists
}

func (o *Orchestrator) runInstance(ctx context.Context, cfg Config, plan Plan) error {
	spec := plan.Spec

	log := slog.With(
		slog.String("instance", spec.Name),
		slog.String("role", string(spec.Role)),
		slog.String("run_id", spec.RunID),
	)

	err := os.MkdirAll(spec.WorkDir, 0o755)
	if err != nil {
		return fmt.Errorf("%w: work dir: %w", launcher.ErrResourceUnavailable, err)
	}

	seed, err := o.writeSeed(ctx, plan)
	if err != nil {
		return err
	}

	inst, err := o.Launcher.Launch(ctx, spec)
	if err != nil {
		// The seed is owned by the instance only once it is launched.
		_ = os.Remove(spec.Seed)

		if ctx.Err() != nil {
			log.Info("Instance stopped during launch")
			return nil
		}

		return err
	}

	defer func() {
		err := inst.Terminate(context.WithoutCancel(ctx))
		if err != nil {
			log.Warn("Terminate instance", slog.Any("error", err))
		}

		log.Info("Instance terminated")
	}()

	result, err := o.runConsole(ctx, log, plan, inst)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("Instance stopped during boot")
			return nil
		}

		o.writeDiagnostics(log, plan, seed, err)

		return err
	}

	log.Info("Startup complete", slog.Duration("elapsed", result.Elapsed))

	err = o.afterReady(ctx, log, cfg, plan)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		o.writeDiagnostics(log, plan, seed, err)

		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case <-inst.Done():
		err := ErrHypervisorExited
		if exitErr := inst.Err(); exitErr != nil {
			err = fmt.Errorf("%w: %w", ErrHypervisorExited, exitErr)
		}

		o.writeDiagnostics(log, plan, seed, err)

		return err
	}
}

func (o *Orchestrator) writeSeed(ctx context.Context, plan Plan) (cloudinit.Seed, error) {
	var mgmtInterface string
	if mgmt, exists := nic.Management(plan.Spec.NICs); exists {
		mgmtInterface = mgmt.SlotName
	}

	seed, err := cloudinit.Render(cloudinit.Options{
		Profile:             plan.Profile,
		Bundle:              plan.Bundle,
		InstanceID:          plan.Spec.RunID,
		ManagementInterface: mgmtInterface,
	})
	if err != nil {
		return cloudinit.Seed{}, fmt.Errorf("render seed: %w", err)
	}

	write := o.WriteSeed
	if write == nil {
		write = func(ctx context.Context, seed cloudinit.Seed, path string) error {
			return seed.WriteISO(ctx, path)
		}
	}

	err = write(ctx, seed, plan.Spec.Seed)
	if err != nil {
		return cloudinit.Seed{}, fmt.Errorf("%w: seed: %w", launcher.ErrResourceUnavailable, err)
	}

	return seed, nil
}

func (o *Orchestrator) runConsole(
	ctx context.Context,
	log *slog.Logger,
	plan Plan,
	inst Instance,
) (console.Result, error) {
	transcript, err := os.Create(consoleLogPath(plan.Spec))
	if err != nil {
		_ = inst.Console().Close()
		return console.Result{}, fmt.Errorf("%w: console log: %w", launcher.ErrResourceUnavailable, err)
	}
	defer transcript.Close()

	engine := console.Engine{
		Playbook:   plan.Playbook,
		Name:       plan.Name(),
		Observer:   o.Observer,
		Transcript: transcript,
		Logger:     log,
	}

	return engine.Run(ctx, inst.Console())
}

func (o *Orchestrator) afterReady(ctx context.Context, log *slog.Logger, cfg Config, plan Plan) error {
	b := plan.Bundle

	err := cfg.Backup.Restore(ctx, log, b.Username, b.Password)
	if err != nil {
		return err
	}

	if !cfg.SSHProbe {
		return nil
	}

	port, exists := plan.Spec.ForwardedPort(sshPort)
	if !exists {
		return nil
	}

	timeout := cfg.SSHProbeTimeout
	if timeout <= 0 {
		timeout = defaultSSHProbeTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := probe.SSH{
		Address:  net.JoinHostPort("127.0.0.1", strconv.Itoa(int(port))),
		Username: b.Username,
		Password: b.Password,
	}

	err = p.Wait(probeCtx)
	if err != nil {
		return err
	}

	log.Info("Management plane reachable", slog.String("address", p.Address))

	return nil
}

// writeDiagnostics archives the artifacts of a failed instance. Failures are
// only logged, the original error is what matters.
func (o *Orchestrator) writeDiagnostics(log *slog.Logger, plan Plan, seed cloudinit.Seed, cause error) {
	spec := plan.Spec
	path := diagnosticsPath(spec)

	entries := []diag.Entry{
		{Name: "error.txt", Data: []byte(cause.Error() + "\n")},
		{Name: "console.log", Path: consoleLogPath(spec)},
		{Name: "qemu.log", Path: spec.LogPath()},
		{Name: "user-data", Data: seed.UserData},
		{Name: "meta-data", Data: seed.MetaData},
	}

	if seed.NetworkConfig != nil {
		entries = append(entries, diag.Entry{Name: "network-config", Data: seed.NetworkConfig})
	}

	err := diag.WriteFile(path, entries...)
	if err != nil {
		log.Warn("Write diagnostics", slog.Any("error", err))
		return
	}

	log.Info("Diagnostics written", slog.String("path", path))
}

func consoleLogPath(spec launcher.InstanceSpec) string {
	return filepath.Join(spec.WorkDir, spec.Name+"-console.log")
}

func diagnosticsPath(spec launcher.InstanceSpec) string {
	return filepath.Join(spec.WorkDir, spec.Name+"-diag.cpio")
}
