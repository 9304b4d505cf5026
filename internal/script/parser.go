/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"log/slog"

	"goscriptwriter/internal/domain"
	applog "goscriptwriter/internal/log"
)

// Parser turns raw generated scripts into scenes. The zero value has no
// markers and therefore yields a single scene per input.
type Parser struct {
	Markers *MarkerSet
	Options SegmentOptions
}

// NewParser compiles markers into a Parser.
func NewParser(markers []string, opts SegmentOptions) *Parser {
	return &Parser{Markers: CompileMarkers(markers), Options: opts}
}

// Parse extracts embedded images, segments the remaining text and assigns
// images to scenes. It is total: every input, including the empty string,
// produces at least one scene, and identical input yields identical output.
func (p *Parser) Parse(raw string) []domain.Scene {
	cleaned, images := ExtractImages(raw)
	var ms *MarkerSet
	if p != nil {
		ms = p.Markers
	}
	opts := SegmentOptions{}
	if p != nil {
		opts = p.Options
	}
	segments := SegmentText(cleaned, ms, opts)
	scenes := Assemble(segments, images)
	applog.WithOperation(applog.WithComponent("script"), "parse").Debug("script parsed",
		slog.Int("bytes", len(raw)),
		slog.Int("images", len(images)),
		slog.Int("scenes", len(scenes)),
	)
	return scenes
}

// Parse is a convenience wrapper for NewParser(markers, SegmentOptions{}).Parse(raw).
func Parse(raw string, markers []string) []domain.Scene {
	return NewParser(markers, SegmentOptions{}).Parse(raw)
}
