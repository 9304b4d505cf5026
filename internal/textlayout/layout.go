/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text measurement and line breaking for scene cards.
// Everything that depends on a concrete font engine sits behind Provider so
// layout stays deterministic in tests (BasicProvider) and pretty in exports
// (OTProvider).

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// LineHeight is ascent + descent + gap.
func (m Metrics) LineHeight() float32 { return m.Ascent + m.Descent + m.LineGap }

// Span is a run of text with the same font.
type Span struct {
	Text string
	Font FontSpec
}

// Line is a single laid out line with width and ascent/descent.
type Line struct {
	Spans   []Span
	Width   float32
	Ascent  float32
	Descent float32
}

// Text concatenates the spans of the line.
func (l Line) Text() string {
	var b strings.Builder
	for _, sp := range l.Spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines   []Line
	Width   float32
	Height  float32
	Metrics Metrics
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// WordWrapLayouter breaks text on spaces and newlines; it does not shape or
// hyphenate. Words wider than the box are split between runes.
type WordWrapLayouter struct {
	Provider Provider
	// Leading is extra space in px added below every line.
	Leading float32
}

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

// Layout lays spans out into lines no wider than maxWidth (0 disables wrapping).
// Blank lines in the input are kept as empty lines.
func (l *WordWrapLayouter) Layout(spans []Span, maxWidth float32) (TextBox, error) {
	provider := l.Provider
	if provider == nil {
		provider = BasicProvider{}
	}
	var spec FontSpec
	if len(spans) > 0 {
		spec = spans[0].Font
	}
	_, met := provider.Resolve(spec)
	box := TextBox{Metrics: met}
	cur := Line{Ascent: met.Ascent, Descent: met.Descent}

	addLine := func() {
		cur.Spans, cur.Width = trimTrailingSpace(cur.Spans, cur.Width, provider)
		box.Lines = append(box.Lines, cur)
		if cur.Width > box.Width {
			box.Width = cur.Width
		}
		box.Height += cur.Ascent + cur.Descent + met.LineGap + l.Leading
		cur = Line{Ascent: met.Ascent, Descent: met.Descent}
	}
	place := func(text string, sp FontSpec, w float32, m Metrics) {
		cur.Spans = append(cur.Spans, Span{Text: text, Font: sp})
		cur.Width += w
		if m.Ascent > cur.Ascent {
			cur.Ascent = m.Ascent
		}
		if m.Descent > cur.Descent {
			cur.Descent = m.Descent
		}
	}

	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		face, m := provider.Resolve(sp.Font)
		drawer := &font.Drawer{Face: face}
		text := strings.NewReplacer("\r\n", "\n", "\r", "\n", "\t", "    ").Replace(sp.Text)
		start := 0
		for i := 0; i <= len(text); i++ {
			if i < len(text) && text[i] != ' ' && text[i] != '\n' {
				continue
			}
			word := text[start:i]
			w := advance(drawer, word)
			if maxWidth > 0 && cur.Width > 0 && cur.Width+w > maxWidth {
				addLine()
			}
			for maxWidth > 0 && w > maxWidth && word != "" {
				head := fitPrefix(drawer, word, maxWidth-cur.Width)
				if head == "" && cur.Width > 0 {
					addLine()
					continue
				}
				if head == "" {
					_, size := utf8.DecodeRuneInString(word)
					head = word[:size]
				}
				place(head, sp.Font, advance(drawer, head), m)
				addLine()
				word = word[len(head):]
				w = advance(drawer, word)
			}
			if word != "" {
				place(word, sp.Font, w, m)
			}
			if i < len(text) {
				switch text[i] {
				case ' ':
					if cur.Width > 0 {
						place(" ", sp.Font, advance(drawer, " "), m)
					}
				case '\n':
					addLine()
				}
			}
			start = i + 1
		}
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		addLine()
	}
	return box, nil
}

// fitPrefix returns the longest rune prefix of word whose advance fits in width.
func fitPrefix(d *font.Drawer, word string, width float32) string {
	end := 0
	for i, r := range word {
		next := i + utf8.RuneLen(r)
		if advance(d, word[:next]) > width {
			break
		}
		end = next
	}
	return word[:end]
}

func trimTrailingSpace(spans []Span, width float32, p Provider) ([]Span, float32) {
	for len(spans) > 0 && spans[len(spans)-1].Text == " " {
		face, _ := p.Resolve(spans[len(spans)-1].Font)
		width -= advance(&font.Drawer{Face: face}, " ")
		spans = spans[:len(spans)-1]
	}
	return spans, width
}

func advance(d *font.Drawer, s string) float32 {
	return float32(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
}

// Measure provides a quick way to measure text width/height without line-breaks.
func Measure(provider Provider, spans []Span) (w, h float32) {
	if provider == nil {
		provider = BasicProvider{}
	}
	var width, lineH float32
	for _, sp := range spans {
		face, met := provider.Resolve(sp.Font)
		width += advance(&font.Drawer{Face: face}, sp.Text)
		if lh := met.Ascent + met.Descent; lh > lineH {
			lineH = lh
		}
	}
	if lineH == 0 {
		_, met := provider.Resolve(FontSpec{})
		lineH = met.Ascent + met.Descent
	}
	return width, lineH
}
