/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"encoding/base64"
	"regexp"
	"sort"
	"strings"

	"github.com/h2non/filetype"

	"goscriptwriter/internal/domain"
)

// Recognised embeds carry the image inline as a base64 data URI:
//
//	![alt](data:image/png;base64,iVBORw0...)
//	<img alt="alt" src="data:image/png;base64,iVBORw0...">
//
// The payload may be wrapped over several lines.
var (
	reMarkdownEmbed = regexp.MustCompile(`!\[([^\]\n]*)\]\(\s*data:(image/[A-Za-z0-9.+-]+);base64,([A-Za-z0-9+/=\s]+?)\s*\)`)
	reHTMLEmbed     = regexp.MustCompile(`(?i)<img\b[^>]*?\bsrc\s*=\s*["']data:(image/[a-z0-9.+-]+);base64,([a-z0-9+/=\s]+?)["'][^>]*>`)
	reHTMLAlt       = regexp.MustCompile(`(?i)\balt\s*=\s*["']([^"']*)["']`)
	reSpace         = regexp.MustCompile(`\s+`)
)

type embed struct {
	start, end int
	ref        domain.ImageRef
}

// ExtractImages removes every recognised image embed from raw and returns the
// remaining text, trimmed of surrounding whitespace, together with the decoded
// images in the order they appear. Embeds whose payload cannot be decoded are
// left in the text untouched. ExtractImages never fails.
func ExtractImages(raw string) (string, []domain.ImageRef) {
	found := findEmbeds(raw)
	if len(found) == 0 {
		return strings.TrimSpace(raw), nil
	}
	var b strings.Builder
	b.Grow(len(raw))
	images := make([]domain.ImageRef, 0, len(found))
	pos := 0
	for _, e := range found {
		b.WriteString(raw[pos:e.start])
		images = append(images, e.ref)
		pos = e.end
	}
	b.WriteString(raw[pos:])
	return strings.TrimSpace(b.String()), images
}

func findEmbeds(raw string) []embed {
	var all []embed
	for _, m := range reMarkdownEmbed.FindAllStringSubmatchIndex(raw, -1) {
		alt := raw[m[2]:m[3]]
		if e, ok := decodeEmbed(m[0], m[1], raw[m[4]:m[5]], raw[m[6]:m[7]], alt); ok {
			all = append(all, e)
		}
	}
	for _, m := range reHTMLEmbed.FindAllStringSubmatchIndex(raw, -1) {
		var alt string
		if a := reHTMLAlt.FindStringSubmatch(raw[m[0]:m[1]]); a != nil {
			alt = a[1]
		}
		if e, ok := decodeEmbed(m[0], m[1], raw[m[2]:m[3]], raw[m[4]:m[5]], alt); ok {
			all = append(all, e)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })
	// an HTML tag could sit inside markdown alt text; keep the leftmost, drop overlaps
	out := all[:0]
	end := -1
	for _, e := range all {
		if e.start < end {
			continue
		}
		out = append(out, e)
		end = e.end
	}
	return out
}

func decodeEmbed(start, end int, declared, payload, alt string) (embed, bool) {
	payload = reSpace.ReplaceAllString(payload, "")
	if payload == "" {
		return embed{}, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil || len(data) == 0 {
			return embed{}, false
		}
	}
	return embed{
		start: start,
		end:   end,
		ref: domain.ImageRef{
			Position: start,
			Data:     data,
			MimeType: sniffMime(data, declared),
			Alt:      strings.TrimSpace(alt),
		},
	}, true
}

// sniffMime prefers the detected content type over the declared one.
func sniffMime(data []byte, declared string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown && strings.HasPrefix(kind.MIME.Value, "image/") {
		return kind.MIME.Value
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "image/jpg" {
		return "image/jpeg"
	}
	return declared
}
