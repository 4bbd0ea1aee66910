// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aibor/vrboot/internal/cloudinit"
	"github.com/aibor/vrboot/internal/console"
	"github.com/aibor/vrboot/internal/launcher"
	"github.com/aibor/vrboot/internal/orchestrator"
	"github.com/aibor/vrboot/internal/profile"
)

// startGuest emulates a guest serial console. It writes the banner and
// answers each line received with the output of respond.
func startGuest(t *testing.T, banner string, respond func(line string) string) io.ReadWriteCloser {
	t.Helper()

	engineSide, guestSide := net.Pipe()
	lines := make(chan string)

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(lines)

		reader := bufio.NewReader(guestSide)

		for {
			line, err := reader.ReadString('\r')
			if err != nil {
				return
			}

			lines <- strings.TrimSuffix(line, "\r")
		}
	}()

	go func() {
		defer wg.Done()

		_, err := io.WriteString(guestSide, banner)

		for line := range lines {
			if err != nil || respond == nil {
				continue
			}

			if output := respond(line); output != "" {
				_, err = io.WriteString(guestSide, output)
			}
		}
	}()

	t.Cleanup(func() {
		_ = guestSide.Close()
		wg.Wait()
	})

	return engineSide
}

// firewallGuest logs in with any credentials and echoes every command.
func firewallGuest(t *testing.T) io.ReadWriteCloser {
	t.Helper()

	step := 0

	return startGuest(t, "FreeBSD/amd64 (freebsd) (ttyu0)\r\n\r\nlogin: ", func(line string) string {
		step++

		switch step {
		case 1:
			return line + "\r\nPassword:"
		case 2:
			return "\r\n$ "
		default:
			return line + "\r\nsshd is running as pid 812.\r\n$ "
		}
	})
}

// silentGuest never shows a login prompt.
func silentGuest(t *testing.T) io.ReadWriteCloser {
	t.Helper()

	return startGuest(t, "Loading kernel...\r\n", nil)
}

type fakeInstance struct {
	console io.ReadWriteCloser
	overlay string
	done    chan struct{}

	mu         sync.Mutex
	terminated int
	exitOnce   sync.Once
}

func (i *fakeInstance) Console() io.ReadWriteCloser {
	return i.console
}

func (i *fakeInstance) Done() <-chan struct{} {
	return i.done
}

func (i *fakeInstance) Err() error {
	return nil
}

func (i *fakeInstance) exit() {
	i.exitOnce.Do(func() { close(i.done) })
}

func (i *fakeInstance) Terminate(context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.terminated++
	if i.terminated == 1 {
		_ = i.console.Close()
		_ = os.Remove(i.overlay)
		i.exit()
	}

	return nil
}

func (i *fakeInstance) Terminated() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.terminated
}

type fakeLauncher struct {
	t      *testing.T
	guests map[profile.Role]func(t *testing.T) io.ReadWriteCloser

	mu        sync.Mutex
	instances map[string]*fakeInstance
	launched  []launcher.InstanceSpec
}

func newFakeLauncher(t *testing.T) *fakeLauncher {
	t.Helper()

	return &fakeLauncher{
		t:         t,
		guests:    map[profile.Role]func(t *testing.T) io.ReadWriteCloser{},
		instances: map[string]*fakeInstance{},
	}
}

func (l *fakeLauncher) Launch(_ context.Context, spec launcher.InstanceSpec) (orchestrator.Instance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launched = append(l.launched, spec)

	err := os.WriteFile(spec.Overlay, []byte("overlay"), 0o600)
	if err != nil {
		return nil, err
	}

	guest, exists := l.guests[spec.Role]
	if !exists {
		guest = silentGuest
	}

	inst := &fakeInstance{
		console: guest(l.t),
		overlay: spec.Overlay,
		done:    make(chan struct{}),
	}
	l.instances[spec.Name] = inst

	return inst, nil
}

func (l *fakeLauncher) Instance(name string) *fakeInstance {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.instances[name]
}

func (l *fakeLauncher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.launched)
}

func writeSeed(_ context.Context, seed cloudinit.Seed, path string) error {
	return os.WriteFile(path, seed.UserData, 0o600)
}

// stateObserver reports terminal states per instance.
type stateObserver struct {
	states chan roleState
}

type roleState struct {
	Name  string
	Role  string
	State console.State
}

func newStateObserver() *stateObserver {
	return &stateObserver{states: make(chan roleState, 16)}
}

func (o *stateObserver) Transition(inst console.Instance, _, to console.State) {
	if to.Terminal() {
		o.states <- roleState{inst.Name, inst.Role, to}
	}
}

func (o *stateObserver) Retry(console.Instance, console.State, int) {}
