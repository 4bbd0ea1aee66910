// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import "errors"

var (
	// ErrEmptyPath is returned if an empty path is given.
	ErrEmptyPath = errors.New("path must not be empty")

	// ErrNotRegularFile is returned if a path is expected to be a regular
	// file but is not.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrInsufficientMemory is returned if the host does not have enough free
	// memory for the requested amount.
	ErrInsufficientMemory = errors.New("insufficient memory")

	// ErrPortInUse is returned if a TCP port is already bound.
	ErrPortInUse = errors.New("port in use")

	// ErrExecutableNotFound is returned if a required executable is not found
	// in PATH.
	ErrExecutableNotFound = errors.New("executable not found")
)
