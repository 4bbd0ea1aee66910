// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/aibor/vrboot/internal/sys"
)

// ImagePattern matches the base images in the image directory.
const ImagePattern = "*.qcow2"

// DiscoverImages returns the base images found in dir in lexical order.
func DiscoverImages(dir string) ([]string, error) {
	images, err := filepath.Glob(filepath.Join(dir, ImagePattern))
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImagesFound, dir)
	}

	slices.Sort(images)

	return images, nil
}

// ValidateImages checks the images are present and returns their absolute
// paths.
func ValidateImages(images []string) ([]string, error) {
	validated := make([]string, 0, len(images))

	for _, image := range images {
		path, err := sys.RegularFile(image)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}

		validated = append(validated, path)
	}

	return validated, nil
}
