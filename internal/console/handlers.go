// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"regexp"
)

// handler reacts on a milestone and returns the next state.
type handler func(s *session) (State, error)

// handlers is the transition table. Milestones without handler in the current
// state are ignored.
var handlers = map[State]map[Milestone]handler{
	StateBooting: {
		MilestoneLogin:    sendUsername,
		MilestoneWake:     wake,
		MilestoneDeadline: retryBoot,
	},
	StateAwaitingPrompt: {
		MilestonePassword: sendPassword,
		MilestoneShell:    authenticated,
		MilestoneRejected: rejected,
		MilestoneLogin:    loginAgain,
		MilestoneDeadline: retryBoot,
	},
	StateAuthenticating: {
		MilestoneNone: configure,
	},
	StateConfiguring: {
		MilestoneNone:     sendDirective,
		MilestoneEcho:     directiveEchoed,
		MilestoneShell:    directiveConfirmed,
		MilestoneDeadline: directiveTimeout,
	},
	StateVerifying: {
		MilestoneNone:     sendProbe,
		MilestoneReady:    ready,
		MilestoneDeadline: retryVerify,
	},
}

func sendUsername(s *session) (State, error) {
	s.passwordSent = false
	return StateAwaitingPrompt, s.send(s.playbook.Username, false)
}

// wake answers a wake banner with an empty line so the guest prints its login
// prompt. Repeated banners count as attempts.
func wake(s *session) (State, error) {
	if s.woken && !s.retry("wake banner repeated") {
		return StateFailed, ErrBootTimeout
	}

	s.woken = true

	return s.state, s.send("", false)
}

func retryBoot(s *session) (State, error) {
	if !s.retry("deadline elapsed") {
		return StateFailed, ErrBootTimeout
	}

	s.passwordSent = false

	return StateBooting, s.send("", false)
}

func sendPassword(s *session) (State, error) {
	// A second password prompt means the first one was not accepted.
	if s.passwordSent {
		return StateFailed, ErrAuthRejected
	}

	s.passwordSent = true

	return s.state, s.send(s.playbook.Password, true)
}

func authenticated(*session) (State, error) {
	return StateAuthenticating, nil
}

func rejected(*session) (State, error) {
	return StateFailed, ErrAuthRejected
}

// loginAgain handles a login prompt after the username has been sent. If the
// password was sent already, the guest rejected the credentials. Otherwise
// the username is sent again, which counts as an attempt.
func loginAgain(s *session) (State, error) {
	if s.passwordSent {
		return StateFailed, ErrAuthRejected
	}

	if !s.retry("login prompt repeated") {
		return StateFailed, ErrBootTimeout
	}

	return s.state, s.send(s.playbook.Username, false)
}

func configure(*session) (State, error) {
	return StateConfiguring, nil
}

func sendDirective(s *session) (State, error) {
	if s.directive >= len(s.playbook.Directives) {
		return StateVerifying, nil
	}

	directive := s.playbook.Directives[s.directive]

	s.directiveSent = true
	s.echo = regexp.MustCompile(regexp.QuoteMeta(directive))
	s.echoSeen = false

	return s.state, s.send(directive, false)
}

func directiveEchoed(s *session) (State, error) {
	s.echoSeen = true
	return s.state, nil
}

func directiveConfirmed(s *session) (State, error) {
	s.directive++
	s.confirmed++
	s.directiveSent = false
	s.echoSeen = false

	return s.state, nil
}

func directiveTimeout(*session) (State, error) {
	return StateFailed, ErrDirectiveUnconfirmed
}

// sendProbe sends the probe once. Without probe and readiness pattern the
// session is ready right away.
func sendProbe(s *session) (State, error) {
	if s.playbook.Probe == "" || s.probeSent {
		return StateReady, nil
	}

	s.probeSent = true

	return s.state, s.send(s.playbook.Probe, false)
}

func ready(*session) (State, error) {
	return StateReady, nil
}

func retryVerify(s *session) (State, error) {
	if !s.retry("deadline elapsed") {
		return StateFailed, ErrVerificationTimeout
	}

	if s.playbook.Probe == "" {
		return s.state, nil
	}

	return s.state, s.send(s.playbook.Probe, false)
}
