/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "goscriptwriter/internal/domain"

// TextStyle is a named preset used when drawing scene cards.
// Leading is extra px added to the line height.
type TextStyle struct {
	Name    string
	Font    FontSpec
	Leading float32
	Color   domain.Color
}

// Style names used by the scene renderer.
const (
	StyleHeader  = "Header"
	StyleBody    = "Body"
	StyleCaption = "Caption"
)

var builtinStyles = map[string]TextStyle{
	StyleHeader: {
		Name:    StyleHeader,
		Font:    FontSpec{Family: DefaultFamily, SizePt: 15, Weight: 700},
		Leading: 4,
		Color:   domain.Color{R: 29, G: 78, B: 216, A: 255},
	},
	StyleBody: {
		Name:    StyleBody,
		Font:    FontSpec{Family: DefaultFamily, SizePt: 12, Weight: 400},
		Leading: 3,
		Color:   domain.Color{R: 31, G: 41, B: 55, A: 255},
	},
	StyleCaption: {
		Name:    StyleCaption,
		Font:    FontSpec{Family: DefaultFamily, SizePt: 10, Weight: 400, Italic: true},
		Leading: 2,
		Color:   domain.Color{R: 107, G: 114, B: 128, A: 255},
	},
}

// GetStyle returns a builtin style preset by name.
func GetStyle(name string) (TextStyle, bool) { s, ok := builtinStyles[name]; return s, ok }

// ListStyles lists the names of the builtin styles in stable order.
func ListStyles() []string { return []string{StyleHeader, StyleBody, StyleCaption} }

// MustStyle is GetStyle for the builtin names; unknown names get the body style.
func MustStyle(name string) TextStyle {
	if s, ok := GetStyle(name); ok {
		return s
	}
	return builtinStyles[StyleBody]
}
