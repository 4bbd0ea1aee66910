// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package launcher starts appliance VMs.
//
// Each instance gets its own copy-on-write overlay on top of the read-only
// base image, so one base image can back any number of concurrent instances.
// The overlay and any other per-instance artifact is removed when the
// instance is terminated.
//
// Launch failures are returned as is. Retrying a launch is up to the caller.
package launcher
