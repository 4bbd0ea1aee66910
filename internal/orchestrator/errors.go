// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package orchestrator

import "errors"

var (
	// ErrNoImages is returned if there is nothing to boot.
	ErrNoImages = errors.New("no images")

	// ErrHypervisorExited is returned if the hypervisor of a ready instance
	// exits without being stopped.
	ErrHypervisorExited = errors.New("hypervisor exited unexpectedly")
)
