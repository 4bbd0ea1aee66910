// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

// Instance identifies the session an [Observer] is notified about.
type Instance struct {
	Name string
	Role string
}

// Observer is notified about session progress.
type Observer interface {
	// Transition is called for each state change.
	Transition(inst Instance, from, to State)

	// Retry is called each time an attempt failed and the state is
	// attempted again.
	Retry(inst Instance, state State, attempt int)
}

type nopObserver struct{}

func (nopObserver) Transition(Instance, State, State) {}

func (nopObserver) Retry(Instance, State, int) {}
