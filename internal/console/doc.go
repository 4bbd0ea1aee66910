// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package console drives the serial console of a guest through its first
// boot.
//
// The [Engine] is a state machine over the console byte stream. It waits for
// boot milestones, logs in, applies the configuration directives one at a
// time and waits for the guest to report readiness. Each state has a
// deadline. Output not matching any milestone of the current state is
// ignored.
//
// Milestones are matched on complete lines. A trailing partial line, like a
// prompt waiting for input, is matched once the output settled.
//
// Configuration directives are only sent in [StateConfiguring], which is
// entered at most once per session. So directives are never sent twice, no
// matter how often a prompt shows up in the stream.
package console
