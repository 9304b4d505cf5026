/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"strings"

	"goscriptwriter/internal/domain"
)

// ErrEmptyContent is returned when scenes hold no exportable text.
var ErrEmptyContent = errors.New("no text content to export")

// ToPlainText joins scene bodies with a blank line. Headers are dropped,
// emphasis delimiters removed and empty bodies skipped.
func ToPlainText(scenes []domain.Scene) string {
	parts := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		body := strings.TrimSpace(stripEmphasis(sc.Body))
		if body == "" {
			continue
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n\n")
}

// PlainTextOrError is ToPlainText that reports ErrEmptyContent instead of returning "".
func PlainTextOrError(scenes []domain.Scene) (string, error) {
	txt := ToPlainText(scenes)
	if txt == "" {
		return "", ErrEmptyContent
	}
	return txt, nil
}

// Title returns the first non-empty scene header, or "".
func Title(scenes []domain.Scene) string {
	for _, sc := range scenes {
		if sc.Header != "" {
			return sc.Header
		}
	}
	return ""
}
