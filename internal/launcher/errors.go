// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package launcher

import "errors"

var (
	// ErrLaunchFailure is returned if the hypervisor could not be started or
	// exited before its console became readable.
	ErrLaunchFailure = errors.New("launch failure")

	// ErrResourceUnavailable is returned if resources requested for an
	// instance can not be reserved.
	ErrResourceUnavailable = errors.New("resource unavailable")
)
