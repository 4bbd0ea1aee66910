// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"strings"

	"github.com/aibor/vrboot/internal/sys"
)

// FilePath is a [pflag.Value] that makes the given path absolute.
type FilePath string

func (f *FilePath) String() string {
	return string(*f)
}

func (f *FilePath) Set(s string) error {
	path, err := sys.AbsolutePath(s)

	*f = FilePath(path)

	return err //nolint:wrapcheck
}

func (*FilePath) Type() string {
	return "path"
}

// FilePathList is a [pflag.Value] collecting absolute paths. Each value may
// be a comma separated list. An empty value resets the list.
type FilePathList []string

func (f *FilePathList) String() string {
	return strings.Join(*f, ",")
}

func (f *FilePathList) Set(s string) error {
	if s == "" {
		*f = FilePathList{}
		return nil
	}

	for e := range strings.SplitSeq(s, ",") {
		path, err := sys.AbsolutePath(e)
		if err != nil {
			return err //nolint:wrapcheck
		}

		*f = append(*f, path)
	}

	return nil
}

func (*FilePathList) Type() string {
	return "paths"
}
