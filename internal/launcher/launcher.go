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
	"net"
	"os"
	"strconv"
	"time"

	"github.com/aibor/vrboot/internal/netdev"
	"github.com/aibor/vrboot/internal/nic"
	"github.com/aibor/vrboot/internal/qemu"
)

// Default executables.
const (
	DefaultQemuExecutable  = "qemu-system-x86_64"
	DefaultImageExecutable = "qemu-img"
)

const (
	defaultConnectTimeout = 30 * time.Second
	connectRetryInterval  = 200 * time.Millisecond
)

// Process is a started hypervisor process.
type Process interface {
	Start(ctx context.Context) error
	Done() <-chan struct{}
	Alive() bool
	Err() error
	Terminate(ctx context.Context, grace time.Duration) error
	String() string
}

// ImageCreator creates instance disks.
type ImageCreator interface {
	CreateOverlay(ctx context.Context, base, backingFormat, path string) error
	CreateDisk(ctx context.Context, path, size string) error
}

// Plumber connects host taps to container interfaces.
type Plumber interface {
	Connect(ctx context.Context, tapName, externalName string) (io.Closer, error)
}

// PlumberFunc adapts a function to [Plumber].
type PlumberFunc func(ctx context.Context, tapName, externalName string) (io.Closer, error)

// Connect implements [Plumber].
func (f PlumberFunc) Connect(ctx context.Context, tapName, externalName string) (io.Closer, error) {
	return f(ctx, tapName, externalName)
}

// NetdevPlumber returns a [Plumber] backed by a [netdev.Plumber] for the
// given mode.
func NetdevPlumber(mode netdev.Mode) (Plumber, error) {
	plumber, err := netdev.NewPlumber(mode)
	if err != nil {
		return nil, err
	}

	return PlumberFunc(func(ctx context.Context, tapName, externalName string) (io.Closer, error) {
		return plumber.Connect(ctx, tapName, externalName)
	}), nil
}

// Launcher starts instances.
type Launcher struct {
	// QemuExecutable is the qemu-system binary.
	QemuExecutable string

	Images  ImageCreator
	Plumber Plumber
	Checker ResourceChecker

	// NewProcess creates the hypervisor process. Defaults to a
	// [qemu.Command].
	NewProcess func(spec qemu.CommandSpec, stderr io.Writer) (Process, error)

	// ConnectTimeout limits the time until the console must accept a
	// connection.
	ConnectTimeout time.Duration

	// GracePeriod is given to the hypervisor on termination before it is
	// killed.
	GracePeriod time.Duration

	// ConsoleHost is the host the console is dialed at.
	ConsoleHost string
}

// New creates a [Launcher] with host defaults.
func New(qemuExecutable, imageExecutable string, plumber Plumber) *Launcher {
	if qemuExecutable == "" {
		qemuExecutable = DefaultQemuExecutable
	}

	if imageExecutable == "" {
		imageExecutable = DefaultImageExecutable
	}

	return &Launcher{
		QemuExecutable: qemuExecutable,
		Images:         qemu.ImageTool{Executable: imageExecutable},
		Plumber:        plumber,
		Checker: HostChecker{
			Executables: []string{qemuExecutable, imageExecutable},
		},
	}
}

func newQemuProcess(spec qemu.CommandSpec, stderr io.Writer) (Process, error) {
	cmd, err := qemu.NewCommand(spec)
	if err != nil {
		return nil, err
	}

	cmd.Stderr = stderr

	return cmd, nil
}

// Launch starts the instance described by spec.
//
// It returns once the console of the instance accepts connections. Any
// error is wrapped as [ErrResourceUnavailable] or [ErrLaunchFailure]. On
// error, everything allocated so far is released.
func (l *Launcher) Launch(ctx context.Context, spec InstanceSpec) (*Instance, error) {
	log := slog.With(slog.String("instance", spec.Name))

	inst := &Instance{
		spec:        spec,
		gracePeriod: l.GracePeriod,
	}

	err := l.launch(ctx, log, inst)
	if err != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		return nil, errors.Join(err, inst.Terminate(cleanupCtx))
	}

	log.Info("Instance launched",
		slog.String("overlay", spec.Overlay),
		slog.Int("console_port", int(spec.ConsolePort)))

	return inst, nil
}

func (l *Launcher) launch(ctx context.Context, log *slog.Logger, inst *Instance) error {
	spec := inst.spec

	if spec.Seed != "" {
		inst.files = append(inst.files, spec.Seed)
	}

	if l.Checker != nil {
		err := l.Checker.Check(spec)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
		}
	}

	err := os.MkdirAll(spec.WorkDir, 0o755)
	if err != nil {
		return fmt.Errorf("%w: work dir: %w", ErrResourceUnavailable, err)
	}

	// Register the overlay before creating it, so partial files are removed
	// as well.
	inst.disks = append(inst.disks, spec.Overlay)

	err = l.Images.CreateOverlay(ctx, spec.Image, "", spec.Overlay)
	if err != nil {
		return fmt.Errorf("%w: overlay: %w", ErrResourceUnavailable, err)
	}

	log.Debug("Overlay created",
		slog.String("base", spec.Image),
		slog.String("overlay", spec.Overlay))

	for idx, size := range spec.Resources.Disks {
		path := spec.DiskPath(idx)
		inst.disks = append(inst.disks, path)

		err := l.Images.CreateDisk(ctx, path, size)
		if err != nil {
			return fmt.Errorf("%w: disk %s: %w", ErrResourceUnavailable, size, err)
		}
	}

	for _, desc := range nic.Data(spec.NICs) {
		conn, err := l.Plumber.Connect(ctx, desc.TapName, desc.ExternalName)
		if err != nil {
			return fmt.Errorf("%w: nic %s: %w", ErrResourceUnavailable, desc.ExternalName, err)
		}

		inst.closers = append(inst.closers, conn)
	}

	logFile, err := os.Create(spec.LogPath())
	if err != nil {
		return fmt.Errorf("%w: log file: %w", ErrResourceUnavailable, err)
	}

	inst.closers = append(inst.closers, logFile)

	cmdSpec := spec.commandSpec()
	cmdSpec.Executable = l.QemuExecutable
	cmdSpec.AddDefaults()

	newProcess := l.NewProcess
	if newProcess == nil {
		newProcess = newQemuProcess
	}

	inst.process, err = newProcess(cmdSpec, logFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLaunchFailure, err)
	}

	log.Debug("Start hypervisor", slog.String("command", inst.process.String()))

	err = inst.process.Start(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLaunchFailure, err)
	}

	inst.console, err = l.connectConsole(ctx, inst.process, spec.ConsolePort)
	if err != nil {
		return err
	}

	return nil
}

// connectConsole dials the console until it accepts a connection. It fails
// if the process exits first or the connect timeout elapses.
func (l *Launcher) connectConsole(ctx context.Context, proc Process, port uint16) (net.Conn, error) {
	timeout := l.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	host := l.ConsoleHost
	if host == "" {
		host = "127.0.0.1"
	}

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := net.Dialer{Timeout: connectRetryInterval}

	ticker := time.NewTicker(connectRetryInterval)
	defer ticker.Stop()

	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}

		select {
		case <-proc.Done():
			return nil, fmt.Errorf(
				"%w: hypervisor exited before console was ready: %w",
				ErrLaunchFailure,
				proc.Err(),
			)
		case <-ctx.Done():
			return nil, fmt.Errorf(
				"%w: console %s not ready: %w",
				ErrLaunchFailure,
				addr,
				ctx.Err(),
			)
		case <-ticker.C:
		}
	}
}
