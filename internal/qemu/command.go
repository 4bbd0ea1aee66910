// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultGracePeriod is the time a [Command] is given to terminate after
// SIGTERM before it is killed.
const DefaultGracePeriod = 10 * time.Second

// Command is a QEMU process.
//
// The process runs in its own process group, so it does not receive signals
// sent to the group of the caller and can be terminated along with any
// children it spawned.
type Command struct {
	name string
	args []string

	// Stderr of the process. Discarded if nil.
	Stderr io.Writer

	cmd  *exec.Cmd
	done chan struct{}
	err  error

	startOnce sync.Once
}

// NewCommand creates a new [Command] for the given spec.
//
// The CommandSpec is validated and the argument list is built. Any error is returned
// as [ArgumentError] or wrapped [ErrArgumentCollision].
func NewCommand(spec CommandSpec) (*Command, error) {
	err := spec.Validate()
	if err != nil {
		return nil, err
	}

	args, err := BuildArgumentStrings(spec.arguments())
	if err != nil {
		return nil, err
	}

	return newCommand(spec.Executable, args), nil
}

func newCommand(name string, args []string) *Command {
	return &Command{
		name: name,
		args: args,
		done: make(chan struct{}),
	}
}

// Name returns the executable of the command.
func (c *Command) Name() string {
	return c.name
}

// Args returns the arguments of the command.
func (c *Command) Args() []string {
	return c.args
}

// String returns a human-readable description of the command.
func (c *Command) String() string {
	return c.name + " " + strings.Join(c.args, " ")
}

// Start starts the process.
//
// The process is not bound to the given context. It must be stopped with
// [Command.Terminate].
func (c *Command) Start(ctx context.Context) error {
	err := ErrAlreadyStarted

	c.startOnce.Do(func() {
		err = c.start(ctx)
	})

	return err
}

func (c *Command) start(ctx context.Context) error {
	//nolint:gosec
	c.cmd = exec.Command(c.name, c.args...)
	c.cmd.Stderr = c.Stderr
	c.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	slog.DebugContext(ctx, "Start qemu", slog.String("command", c.String()))

	err := c.cmd.Start()
	if err != nil {
		c.cmd = nil
		c.err = &CommandError{Err: err}
		close(c.done)

		return c.err
	}

	go func() {
		defer close(c.done)

		err := c.cmd.Wait()
		if err == nil {
			return
		}

		cmdErr := &CommandError{Err: err}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}

		c.err = cmdErr
	}()

	return nil
}

// PID returns the process ID. It is 0 if the process is not started.
func (c *Command) PID() int {
	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}

	return c.cmd.Process.Pid
}

// Done returns a channel that is closed once the process exited.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Alive returns true if the process is started and not exited.
func (c *Command) Alive() bool {
	if c.cmd == nil {
		return false
	}

	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Err returns the exit error of the process. It is nil while the process is
// running or if it exited with exit code 0.
func (c *Command) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Terminate stops the process group.
//
// SIGTERM is sent to the process group first. If the process does not exit
// within the grace period, SIGKILL is sent. It returns once the process
// exited or the context is done.
func (c *Command) Terminate(ctx context.Context, grace time.Duration) error {
	if c.cmd == nil {
		return ErrNotStarted
	}

	if !c.Alive() {
		return nil
	}

	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	pgid := -c.cmd.Process.Pid

	err := unix.Kill(pgid, unix.SIGTERM)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("sigterm: %w", err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	slog.Warn("Qemu did not terminate in time, killing",
		slog.Int("pid", c.cmd.Process.Pid),
		slog.Duration("grace", grace))

	err = unix.Kill(pgid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("sigkill: %w", err)
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
