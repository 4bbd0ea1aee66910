// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
)

var (
	// ErrReadBuildInfo is returned if the build info can not be read.
	ErrReadBuildInfo = errors.New("failed to read build info")

	// ErrNoImagesFound is returned if neither images are given nor any are
	// found in the image directory.
	ErrNoImagesFound = errors.New("no images found")

	// ErrInvalidImage is returned if an image is not a readable regular
	// file.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidInstance is returned if the console command is given an
	// instance index that does not exist.
	ErrInvalidInstance = errors.New("invalid instance")
)

// ParseArgsError wraps errors that occur during argument parsing.
type ParseArgsError struct {
	err error
	msg string
}

func (e *ParseArgsError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *ParseArgsError) Is(other error) bool {
	_, ok := other.(*ParseArgsError)
	return ok
}

func (e *ParseArgsError) Unwrap() error {
	return e.err
}
