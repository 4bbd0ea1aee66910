// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime/debug"

	"github.com/aibor/vrboot/internal/bundle"
	"github.com/aibor/vrboot/internal/console"
	"github.com/aibor/vrboot/internal/launcher"
	"github.com/aibor/vrboot/internal/metrics"
	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/orchestrator"
	"github.com/aibor/vrboot/internal/probe"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/aibor/vrboot/internal/qemu"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// localConfigFile is read relative to the root directory.
const localConfigFile = "config/vrboot-args"

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Exit codes by error class.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitLaunch  = 3
	ExitTimeout = 4
	ExitAuth    = 5
)

// exitCodes is checked in order. The first class any error matches wins,
// which matters for joined errors of multiple instances.
var exitCodes = []struct {
	code int
	errs []error
}{
	{
		code: ExitConfig,
		errs: []error{
			&ParseArgsError{},
			ErrInvalidImage,
			ErrNoImagesFound,
			ErrInvalidInstance,
			orchestrator.ErrNoImages,
			profile.ErrUnrecognizedImage,
			profile.ErrUnknownRole,
			bundle.ErrConfigConflict,
			bundle.ErrInvalidPassword,
			bundle.ErrInvalidDocument,
			nic.ErrInvalidTopology,
			&qemu.ArgumentError{},
			console.ErrInvalidPlaybook,
		},
	},
	{
		code: ExitAuth,
		errs: []error{
			console.ErrAuthRejected,
			console.ErrDirectiveUnconfirmed,
		},
	},
	{
		code: ExitTimeout,
		errs: []error{
			console.ErrBootTimeout,
			console.ErrVerificationTimeout,
			probe.ErrUnreachable,
		},
	},
	{
		code: ExitLaunch,
		errs: []error{
			launcher.ErrLaunchFailure,
			launcher.ErrResourceUnavailable,
			orchestrator.ErrHypervisorExited,
		},
	},
}

func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	for _, class := range exitCodes {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				return class.code
			}
		}
	}

	return ExitFailure
}

func handleRunError(err error, stderr io.Writer) int {
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(stderr, "Error [vrboot]: %v\n", err)

	return exitCode(err)
}

func runInstances(ctx context.Context, f *flags, flagSet *pflag.FlagSet) error {
	cfg, err := f.config(flagSet)
	if err != nil {
		return err
	}

	plumber, err := launcher.NetdevPlumber(cfg.ConnectionMode)
	if err != nil {
		return fmt.Errorf("%w: %w", launcher.ErrResourceUnavailable, err)
	}

	orch := orchestrator.New(orchestrator.HostLauncher{
		Launcher: launcher.New(f.qemuBin, f.imageBin, plumber),
	})

	if f.metricsAddr == "" {
		return orch.Run(ctx, cfg)
	}

	registry := prometheus.NewRegistry()
	orch.Observer = metrics.New(registry)

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", f.metricsAddr)
	if err != nil {
		return fmt.Errorf("%w: metrics: %w", launcher.ErrResourceUnavailable, err)
	}

	serveCtx, stopServing := context.WithCancel(ctx)

	var group errgroup.Group

	group.Go(func() error {
		return metrics.Serve(serveCtx, listener, metrics.Handler(registry))
	})

	err = orch.Run(ctx, cfg)

	stopServing()

	return errors.Join(err, group.Wait())
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	setupLogging(cfg.Stderr, slog.LevelInfo)

	flags := newFlags()

	err := flags.parsePresets(os.DirFS("/"), localConfigFile)
	if err != nil {
		return handleRunError(err, cfg.Stderr)
	}

	root := newRootCommand(flags, cfg)
	root.SetArgs(args)

	return handleRunError(root.ExecuteContext(ctx), cfg.Stderr)
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
