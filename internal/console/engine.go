// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	readBufferSize = 4096
	chunkQueueSize = 64
	writeTimeout   = 10 * time.Second

	// DefaultSettle is the quiet time after which a partial line is matched.
	DefaultSettle = 150 * time.Millisecond
)

// Result describes a finished session.
type Result struct {
	State      State
	Milestone  Milestone
	Retries    int
	Directives int
	Elapsed    time.Duration
}

// Engine runs a [Playbook] against a console.
type Engine struct {
	Playbook Playbook

	// Name of the instance, reported to the Observer. Defaults to the role
	// of the playbook.
	Name string

	// Settle is the time without new output after which a trailing partial
	// line, like a prompt waiting for input, is matched. Defaults to
	// [DefaultSettle].
	Settle time.Duration

	// Observer is notified about state changes and retries. Optional.
	Observer Observer

	// Transcript receives the console output with carriage returns removed.
	// Optional.
	Transcript io.Writer

	// Logger for session events. Defaults to [slog.Default].
	Logger *slog.Logger
}

// Run drives the console until the session is ready or failed.
//
// The console is closed when Run returns. Any failure is returned as
// [*SessionError] wrapping the cause, like [ErrBootTimeout]. If ctx is
// canceled, the session fails with the context error.
func (e *Engine) Run(ctx context.Context, console io.ReadWriteCloser) (Result, error) {
	err := e.Playbook.Validate()
	if err != nil {
		_ = console.Close()
		return Result{State: StateInit}, err
	}

	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observer := e.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	settle := e.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	id := Instance{Name: e.Name, Role: e.Playbook.Role}
	if id.Name == "" {
		id.Name = id.Role
	}

	logger = logger.With(slog.String("role", e.Playbook.Role))

	s := &session{
		playbook: e.Playbook,
		id:       id,
		observer: observer,
		logger:   logger,
		console:  console,
		transcript: &transcript{
			dst:    e.Transcript,
			logger: logger,
		},
		chunks:      make(chan []byte, chunkQueueSize),
		timer:       time.NewTimer(0),
		settle:      settle,
		settleTimer: time.NewTimer(settle),
		start:       time.Now(),
	}
	defer s.timer.Stop()
	defer s.settleTimer.Stop()

	var readers errgroup.Group

	stop := make(chan struct{})

	readers.Go(func() error {
		return s.read(stop)
	})

	s.run(ctx)

	close(stop)

	_ = console.Close()
	_ = readers.Wait()
	_ = s.transcript.Flush()

	result := Result{
		State:      s.state,
		Milestone:  s.milestone,
		Retries:    s.retries,
		Directives: s.confirmed,
		Elapsed:    time.Since(s.start),
	}

	if s.err != nil {
		return result, &SessionError{
			Role:      s.playbook.Role,
			State:     s.failedIn,
			Milestone: s.milestone,
			Retries:   s.retries,
			Err:       s.err,
		}
	}

	return result, nil
}

// session is the state of a single run. It is only accessed by the consumer
// loop, except for the chunks channel and readErr which are written by the
// reader.
type session struct {
	playbook   Playbook
	id         Instance
	observer   Observer
	logger     *slog.Logger
	console    io.ReadWriter
	transcript *transcript
	matcher    matcher

	chunks  chan []byte
	readErr error

	timer       *time.Timer
	settle      time.Duration
	settleTimer *time.Timer
	start       time.Time

	state     State
	failedIn  State
	milestone Milestone
	retries   int
	err       error

	passwordSent  bool
	woken         bool
	configured    bool
	directive     int
	directiveSent bool
	echo          *regexp.Regexp
	echoSeen      bool
	confirmed     int
	probeSent     bool
}

// read forwards console output to the consumer loop until the console is
// closed or stop is closed.
func (s *session) read(stop <-chan struct{}) error {
	defer close(s.chunks)

	buf := make([]byte, readBufferSize)

	for {
		n, err := s.console.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case s.chunks <- chunk:
			case <-stop:
				return nil
			}
		}

		if err != nil {
			s.readErr = err
			return err
		}
	}
}

func (s *session) run(ctx context.Context) {
	s.enter(StateBooting)

	for !s.state.Terminal() {
		milestone, err := s.next(ctx)
		if err != nil {
			s.fail(err)
			return
		}

		handle, handled := handlers[s.state][milestone]
		if !handled {
			continue
		}

		if milestone != MilestoneNone && milestone != MilestoneDeadline {
			s.milestone = milestone
		}

		next, err := handle(s)
		if err != nil {
			s.fail(err)
			return
		}

		if next != s.state {
			s.enter(next)
		} else {
			s.arm()
		}
	}
}

// next returns the next milestone of the current state.
//
// It returns [MilestoneNone] right away if the state waits for nothing and
// [MilestoneDeadline] once the deadline of the state elapsed.
func (s *session) next(ctx context.Context) (Milestone, error) {
	patterns := s.patterns()
	if len(patterns) == 0 {
		return MilestoneNone, nil
	}

	settled := false

	for {
		milestone, found := s.matcher.match(patterns, settled)
		if found {
			return s.matched(milestone), nil
		}

		var quiet <-chan time.Time

		if !settled && s.matcher.pending() {
			s.settleTimer.Reset(s.settle)
			quiet = s.settleTimer.C
		}

		select {
		case <-ctx.Done():
			return MilestoneNone, ctx.Err()
		case <-s.timer.C:
			// No more output is waited for, so a partial line is final.
			final, found := s.matcher.match(patterns, true)
			if found {
				return s.matched(final), nil
			}

			s.logger.Debug("Deadline elapsed",
				slog.String("state", s.state.String()),
				slog.Duration("deadline", s.deadline()))

			return MilestoneDeadline, nil
		case <-quiet:
			settled = true
		case chunk, ok := <-s.chunks:
			if !ok {
				return MilestoneNone, s.closedErr()
			}

			_, _ = s.transcript.Write(chunk)
			s.matcher.feed(chunk)

			settled = false
		}
	}
}

func (s *session) matched(milestone Milestone) Milestone {
	s.logger.Debug("Milestone matched",
		slog.String("state", s.state.String()),
		slog.String("milestone", milestone.String()))

	return milestone
}

func (s *session) closedErr() error {
	if s.readErr != nil && !errors.Is(s.readErr, io.EOF) {
		return fmt.Errorf("%w: %w", ErrConsoleClosed, s.readErr)
	}

	return ErrConsoleClosed
}

// patterns returns the patterns the current state waits for.
func (s *session) patterns() []pattern {
	var milestones []Milestone

	switch s.state {
	case StateBooting:
		milestones = []Milestone{MilestoneLogin, MilestoneWake}
	case StateAwaitingPrompt:
		milestones = []Milestone{
			MilestoneRejected,
			MilestonePassword,
			MilestoneShell,
			MilestoneLogin,
		}
	case StateConfiguring:
		switch {
		case !s.directiveSent:
			return nil
		case !s.echoSeen:
			return []pattern{{
				milestone: MilestoneEcho,
				re:        s.echo,
			}}
		default:
			milestones = []Milestone{MilestoneShell}
		}
	case StateVerifying:
		if s.playbook.Probe != "" && !s.probeSent {
			return nil
		}

		milestones = []Milestone{MilestoneReady}
	default:
		return nil
	}

	patterns := make([]pattern, 0, len(milestones))

	for _, milestone := range milestones {
		re := s.playbook.Patterns[milestone]
		if re != nil {
			patterns = append(patterns, pattern{milestone, re})
		}
	}

	return patterns
}

// deadline returns the deadline of the current state.
func (s *session) deadline() time.Duration {
	d := s.playbook.Deadlines

	switch s.state {
	case StateBooting:
		return d.Boot
	case StateAwaitingPrompt:
		return d.Prompt
	case StateConfiguring:
		return d.Directive
	case StateVerifying:
		return d.Verify
	default:
		return 0
	}
}

// arm restarts the deadline of the current state.
func (s *session) arm() {
	if d := s.deadline(); d > 0 {
		s.timer.Reset(d)
	} else {
		s.timer.Stop()
	}
}

func (s *session) enter(state State) {
	from := s.state

	if state == StateConfiguring {
		if s.configured {
			s.fail(fmt.Errorf("%w: configuration already applied", ErrInvalidPlaybook))
			return
		}

		s.configured = true
	}

	if state == StateVerifying {
		s.retries = 0
	}

	s.state = state
	s.arm()

	s.logger.Info("Console state changed",
		slog.String("from", from.String()),
		slog.String("to", state.String()))
	s.observer.Transition(s.id, from, state)
}

func (s *session) fail(err error) {
	s.err = err
	s.failedIn = s.state
	s.enter(StateFailed)
}

// send writes text followed by the line ending to the console. Output that
// has not been matched so far is dropped, so only answers to the input are
// matched afterwards.
func (s *session) send(text string, secret bool) error {
	s.matcher.reset()

	logged := text
	if secret {
		logged = "********"
	}

	s.logger.Debug("Send", slog.String("text", logged))

	if conn, ok := s.console.(interface{ SetWriteDeadline(t time.Time) error }); ok {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	}

	_, err := io.WriteString(s.console, text+s.playbook.LineEnding)
	if err != nil {
		return fmt.Errorf("%w: write: %w", ErrConsoleClosed, err)
	}

	return nil
}

// retry counts a failed attempt. It returns false once all attempts are
// used up.
func (s *session) retry(reason string) bool {
	s.retries++
	if s.retries >= s.playbook.Retries {
		return false
	}

	s.logger.Warn("Retrying",
		slog.String("reason", reason),
		slog.String("state", s.state.String()),
		slog.Int("attempt", s.retries+1),
		slog.Int("attempts", s.playbook.Retries))
	s.observer.Retry(s.id, s.state, s.retries)

	return true
}
