// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

// State of a console session.
type State int

// Session states in their regular order.
const (
	StateInit State = iota
	StateBooting
	StateAwaitingPrompt
	StateAuthenticating
	StateConfiguring
	StateVerifying
	StateReady
	StateFailed
)

var stateNames = [...]string{
	StateInit:           "INIT",
	StateBooting:        "BOOTING",
	StateAwaitingPrompt: "AWAITING_PROMPT",
	StateAuthenticating: "AUTHENTICATING",
	StateConfiguring:    "CONFIGURING",
	StateVerifying:      "VERIFYING",
	StateReady:          "READY",
	StateFailed:         "FAILED",
}

// States returns all states in order.
func States() []State {
	return []State{
		StateInit,
		StateBooting,
		StateAwaitingPrompt,
		StateAuthenticating,
		StateConfiguring,
		StateVerifying,
		StateReady,
		StateFailed,
	}
}

// String implements [fmt.Stringer].
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}

	return stateNames[s]
}

// Terminal returns true for states a session does not leave.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Milestone is a recognizable checkpoint in the console stream.
type Milestone int

// Milestones. [MilestoneNone] and [MilestoneDeadline] are no patterns. The
// former is emitted by states that do not wait for anything, the latter if
// the deadline of a state elapsed.
const (
	MilestoneNone Milestone = iota
	MilestoneWake
	MilestoneLogin
	MilestonePassword
	MilestoneShell
	MilestoneRejected
	MilestoneEcho
	MilestoneReady
	MilestoneDeadline
)

var milestoneNames = [...]string{
	MilestoneNone:     "none",
	MilestoneWake:     "wake",
	MilestoneLogin:    "login prompt",
	MilestonePassword: "password prompt",
	MilestoneShell:    "authenticated prompt",
	MilestoneRejected: "rejection",
	MilestoneEcho:     "directive echo",
	MilestoneReady:    "management service ready",
	MilestoneDeadline: "deadline",
}

// String implements [fmt.Stringer].
func (m Milestone) String() string {
	if m < 0 || int(m) >= len(milestoneNames) {
		return "unknown"
	}

	return milestoneNames[m]
}
