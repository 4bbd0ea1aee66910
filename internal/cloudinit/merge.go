// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cloudinit

import (
	"bytes"
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// Merge merges the override document into the base document.
//
// Maps are merged recursively, lists are concatenated and any other value
// of override replaces the one of base. Both documents are cloud-config
// YAML. The result carries the cloud-config header.
func Merge(base, override []byte) ([]byte, error) {
	var baseDoc, overrideDoc map[string]any

	err := yaml.Unmarshal(base, &baseDoc)
	if err != nil {
		return nil, fmt.Errorf("parse base: %w", err)
	}

	err = yaml.Unmarshal(override, &overrideDoc)
	if err != nil {
		return nil, fmt.Errorf("parse override: %w", err)
	}

	merged := mergeMaps(baseDoc, overrideDoc)

	var buf bytes.Buffer

	buf.WriteString(header)

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	err = encoder.Encode(merged)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return buf.Bytes(), nil
}

func mergeMaps(dst, src map[string]any) map[string]any {
	result := maps.Clone(dst)
	if result == nil {
		result = make(map[string]any, len(src))
	}

	for key, srcValue := range src {
		dstValue, exists := dst[key]
		if !exists {
			result[key] = srcValue
			continue
		}

		switch srcTyped := srcValue.(type) {
		case map[string]any:
			if dstTyped, ok := dstValue.(map[string]any); ok {
				result[key] = mergeMaps(dstTyped, srcTyped)
				continue
			}
		case []any:
			if dstTyped, ok := dstValue.([]any); ok {
				list := make([]any, 0, len(dstTyped)+len(srcTyped))
				list = append(list, dstTyped...)
				result[key] = append(list, srcTyped...)

				continue
			}
		}

		result[key] = srcValue
	}

	return result
}
