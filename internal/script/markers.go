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
	"regexp"
	"sort"
	"strings"

	applog "goscriptwriter/internal/log"
)

// RegexPrefix marks a marker string as a regular expression matched anywhere in the text.
const RegexPrefix = "re:"

// DefaultMarkers returns the screenplay boundary vocabulary used when none is configured.
func DefaultMarkers() []string {
	return []string{
		"INT./EXT.", "I/E.", "INT.", "EXT.",
		"FADE IN:", "FADE OUT.", "CUT TO:", "DISSOLVE TO:", "SMASH CUT TO:",
		RegexPrefix + `Scene\s+\d+:`,
	}
}

type marker struct {
	raw     string
	literal string         // line marker
	re      *regexp.Regexp // inline marker
}

// MarkerSet is a compiled set of scene boundary markers.
//
// A plain marker matches a line whose first token, after optional
// '#', '*' or '_' decoration, starts with the marker text; the whole line
// becomes the header. A marker prefixed with "re:" is a regular expression
// matched inline; only the matched text becomes the header.
// Matching is case-sensitive.
type MarkerSet struct {
	markers []marker
}

// CompileMarkers builds a MarkerSet. Blank entries and invalid expressions are skipped.
func CompileMarkers(specs []string) *MarkerSet {
	l := applog.WithOperation(applog.WithComponent("script"), "compile_markers")
	ms := &MarkerSet{}
	seen := map[string]bool{}
	for _, s := range specs {
		if strings.TrimSpace(s) == "" || seen[s] {
			continue
		}
		seen[s] = true
		if expr, ok := strings.CutPrefix(s, RegexPrefix); ok {
			re, err := regexp.Compile(expr)
			if err != nil {
				l.Warn("skipping invalid marker expression", slog.String("marker", s), slog.Any("err", err))
				continue
			}
			ms.markers = append(ms.markers, marker{raw: s, re: re})
			continue
		}
		ms.markers = append(ms.markers, marker{raw: s, literal: strings.TrimSpace(s)})
	}
	return ms
}

// Len returns the number of usable markers.
func (ms *MarkerSet) Len() int {
	if ms == nil {
		return 0
	}
	return len(ms.markers)
}

// Strings returns the marker specs that compiled.
func (ms *MarkerSet) Strings() []string {
	if ms == nil {
		return nil
	}
	out := make([]string, len(ms.markers))
	for i, m := range ms.markers {
		out[i] = m.raw
	}
	return out
}

type span struct{ start, end int }

// find returns the leftmost non-overlapping marker spans in text. When two
// candidates start at the same offset the longer one wins.
func (ms *MarkerSet) find(text string) []span {
	if ms.Len() == 0 || text == "" {
		return nil
	}
	var cands []span
	var lineMarkers []string
	for _, m := range ms.markers {
		if m.re != nil {
			for _, loc := range m.re.FindAllStringIndex(text, -1) {
				if loc[1] > loc[0] {
					cands = append(cands, widenEmphasis(text, span{loc[0], loc[1]}))
				}
			}
			continue
		}
		lineMarkers = append(lineMarkers, m.literal)
	}
	if len(lineMarkers) > 0 {
		cands = append(cands, findLineMarkers(text, lineMarkers)...)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].start != cands[j].start {
			return cands[i].start < cands[j].start
		}
		return cands[i].end > cands[j].end
	})
	out := make([]span, 0, len(cands))
	end := -1
	for _, c := range cands {
		if c.start < end {
			continue
		}
		out = append(out, c)
		end = c.end
	}
	return out
}

func findLineMarkers(text string, literals []string) []span {
	var out []span
	start := 0
	for start <= len(text) {
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += start
		}
		line := text[start:end]
		token := strings.TrimLeft(line, " \t#*_")
		for _, lit := range literals {
			if strings.HasPrefix(token, lit) {
				out = append(out, span{start, end})
				break
			}
		}
		if end == len(text) {
			break
		}
		start = end + 1
	}
	return out
}

// widenEmphasis grows an inline match over directly adjacent emphasis
// delimiters so "**Scene 1:**" does not leave "**" at the start of the body.
func widenEmphasis(text string, s span) span {
	for s.start > 0 && isEmphasis(text[s.start-1]) {
		s.start--
	}
	for s.end < len(text) && isEmphasis(text[s.end]) {
		s.end++
	}
	return s
}

func isEmphasis(c byte) bool { return c == '*' || c == '_' }
