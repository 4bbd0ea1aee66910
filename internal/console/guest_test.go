// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console_test

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aibor/vrboot/internal/bundle"
	"github.com/aibor/vrboot/internal/console"
	"github.com/aibor/vrboot/internal/profile"
	"github.com/stretchr/testify/require"
)

// guest emulates the serial console of a guest. It writes the banner and
// answers each line received from the engine with the output returned by
// respond.
type guest struct {
	mu       sync.Mutex
	received []string
	wg       sync.WaitGroup

	// writing is set while output is written. Input received meanwhile is
	// counted as early.
	writing atomic.Bool
	early   atomic.Int32
}

// writeFunc writes guest output to the console.
type writeFunc func(w io.Writer, output string) error

func writeAll(w io.Writer, output string) error {
	_, err := io.WriteString(w, output)
	return err
}

// writeBytes writes the output one byte at a time, like a serial line.
func writeBytes(w io.Writer, output string) error {
	for idx := range len(output) {
		_, err := w.Write([]byte{output[idx]})
		if err != nil {
			return err
		}
	}

	return nil
}

// pause separates output written with a short delay in between.
const pause = "\x00"

func writePaused(w io.Writer, output string) error {
	for idx, part := range strings.Split(output, pause) {
		if idx > 0 {
			time.Sleep(20 * time.Millisecond)
		}

		err := writeAll(w, part)
		if err != nil {
			return err
		}
	}

	return nil
}

func startGuest(
	t *testing.T,
	banner string,
	respond func(line string) string,
) (io.ReadWriteCloser, *guest) {
	t.Helper()

	return startGuestWith(t, writeAll, banner, respond)
}

func startGuestWith(
	t *testing.T,
	write writeFunc,
	banner string,
	respond func(line string) string,
) (io.ReadWriteCloser, *guest) {
	t.Helper()

	engineSide, guestSide := net.Pipe()
	g := &guest{}
	lines := make(chan string)

	g.wg.Add(2)

	go func() {
		defer g.wg.Done()
		defer close(lines)

		reader := bufio.NewReader(guestSide)

		for {
			line, err := reader.ReadString('\r')
			if err != nil {
				return
			}

			line = strings.TrimSuffix(line, "\r")

			if g.writing.Load() {
				g.early.Add(1)
			}

			g.mu.Lock()
			g.received = append(g.received, line)
			g.mu.Unlock()

			lines <- line
		}
	}()

	go func() {
		defer g.wg.Done()

		g.writing.Store(true)
		err := write(guestSide, banner)
		g.writing.Store(false)

		for line := range lines {
			if err != nil || respond == nil {
				continue
			}

			if output := respond(line); output != "" {
				g.writing.Store(true)
				err = write(guestSide, output)
				g.writing.Store(false)
			}
		}
	}()

	t.Cleanup(func() {
		_ = guestSide.Close()
		g.wg.Wait()
	})

	return engineSide, g
}

// Received returns the lines received so far.
func (g *guest) Received() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.received...)
}

// Early returns the number of lines received while output was written.
func (g *guest) Early() int {
	return int(g.early.Load())
}

// Count returns how often line was received.
func (g *guest) Count(line string) int {
	count := 0

	for _, received := range g.Received() {
		if received == line {
			count++
		}
	}

	return count
}

type transition struct {
	From, To console.State
}

type recorder struct {
	instances   []console.Instance
	transitions []transition
	retries     []int
}

func (r *recorder) Transition(inst console.Instance, from, to console.State) {
	r.instances = append(r.instances, inst)
	r.transitions = append(r.transitions, transition{from, to})
}

func (r *recorder) Retry(_ console.Instance, _ console.State, attempt int) {
	r.retries = append(r.retries, attempt)
}

func (r *recorder) Count(to console.State) int {
	count := 0

	for _, t := range r.transitions {
		if t.To == to {
			count++
		}
	}

	return count
}

func testPlaybook(t *testing.T, role profile.Role, deadline time.Duration) console.Playbook {
	t.Helper()

	prof, err := profile.Lookup(role)
	require.NoError(t, err)

	b, err := bundle.Resolve(prof, bundle.Inputs{})
	require.NoError(t, err)

	playbook, err := console.NewPlaybook(prof, b)
	require.NoError(t, err)

	playbook.Deadlines = console.Deadlines{
		Boot:      deadline,
		Prompt:    deadline,
		Directive: deadline,
		Verify:    deadline,
	}

	return playbook
}

// shell emulates the login sequence of a guest. Once logged in, each line is
// answered by the command func.
func shell(prompt string, command func(line string) string) func(string) string {
	step := 0

	return func(line string) string {
		switch step {
		case 0:
			step++
			return line + "\r\nPassword:"
		case 1:
			step++
			return "\r\n" + prompt
		default:
			return command(line) + prompt
		}
	}
}

// firewallGuest answers like a FreeBSD guest.
func firewallGuest() func(string) string {
	return shell("$ ", func(line string) string {
		switch {
		case line == "service sshd status":
			return line + "\r\nsshd is running as pid 812.\r\n"
		case strings.HasPrefix(line, "sudo sysrc"):
			return line + "\r\nhostname: freebsd -> freebsd\r\n"
		default:
			return line + "\r\n"
		}
	})
}

const firewallBanner = "FreeBSD/amd64 (freebsd) (ttyu0)\r\n\r\nlogin: "
