/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"
)

// Segment is a header/body pair produced by the segmenter.
type Segment struct {
	Header string
	Body   string
}

// SegmentOptions tunes segmentation.
type SegmentOptions struct {
	// KeepPreamble emits text found before the first marker as a leading
	// segment with an empty header. By default it is discarded.
	KeepPreamble bool
}

type segState int

const (
	stateSeekingMarker segState = iota
	stateCollectingBody
)

// SegmentText splits cleaned script text into header/body pairs.
//
// The segmenter walks the marker matches as a two-state machine: while
// seeking a marker any text is preamble; once a marker is found it collects
// body text until the next marker or the end of input. Text without any
// marker yields exactly one segment holding the whole text as body.
func SegmentText(text string, markers *MarkerSet, opts SegmentOptions) []Segment {
	spans := markers.find(text)
	if len(spans) == 0 {
		return []Segment{{Header: "", Body: strings.TrimSpace(text)}}
	}

	var out []Segment
	state := stateSeekingMarker
	header := ""
	pos := 0
	for _, sp := range spans {
		chunk := text[pos:sp.start]
		switch state {
		case stateSeekingMarker:
			if opts.KeepPreamble && strings.TrimSpace(chunk) != "" {
				out = append(out, Segment{Body: strings.TrimSpace(chunk)})
			}
			state = stateCollectingBody
		case stateCollectingBody:
			out = append(out, Segment{Header: header, Body: strings.TrimSpace(chunk)})
		}
		header = CleanHeader(text[sp.start:sp.end])
		pos = sp.end
	}
	if state == stateCollectingBody {
		out = append(out, Segment{Header: header, Body: strings.TrimSpace(text[pos:])})
	}
	return out
}

// CleanHeader strips heading hashes and emphasis delimiters from a marker line.
func CleanHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimLeft(h, "#")
	h = stripEmphasis(h)
	return strings.TrimSpace(h)
}

var emphasisReplacer = strings.NewReplacer("*", "", "_", "")

func stripEmphasis(s string) string { return emphasisReplacer.Replace(s) }
