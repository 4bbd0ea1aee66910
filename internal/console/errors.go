// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"errors"
	"fmt"
)

var (
	// ErrBootTimeout is returned if no login prompt shows up within the
	// boot deadline for the configured number of attempts.
	ErrBootTimeout = errors.New("boot timeout")

	// ErrAuthRejected is returned if the guest rejects the credentials.
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrDirectiveUnconfirmed is returned if the guest does not echo a
	// directive and return to its prompt within the directive deadline.
	ErrDirectiveUnconfirmed = errors.New("directive unconfirmed")

	// ErrVerificationTimeout is returned if the readiness milestone does not
	// show up within the verification deadline for the configured number of
	// attempts.
	ErrVerificationTimeout = errors.New("verification timeout")

	// ErrConsoleClosed is returned if the console stream ends before the
	// session is finished.
	ErrConsoleClosed = errors.New("console closed")

	// ErrInvalidPlaybook is returned for playbooks that can not be run.
	ErrInvalidPlaybook = errors.New("invalid playbook")
)

// SessionError is returned for sessions that end in [StateFailed]. It
// carries the context required to diagnose the failure without replaying the
// console.
type SessionError struct {
	Role      string
	State     State
	Milestone Milestone
	Retries   int
	Err       error
}

// Error implements the [error] interface.
func (e *SessionError) Error() string {
	return fmt.Sprintf(
		"%s console: %v in state %s (last milestone: %s, retries: %d)",
		e.Role,
		e.Err,
		e.State,
		e.Milestone,
		e.Retries,
	)
}

// Is implements the [errors.Is] interface.
func (e *SessionError) Is(other error) bool {
	_, ok := other.(*SessionError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *SessionError) Unwrap() error {
	return e.Err
}
