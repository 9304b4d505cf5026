/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"goscriptwriter/internal/domain"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/textlayout"
)

// SurfaceOptions controls the look of a SceneSurface. Zero values get defaults.
type SurfaceOptions struct {
	Width   int // px, required
	Margin  int // outer margin
	Padding int // inside each card
	Gap     int // between cards and between card sections

	IncludeImages bool
	Provider      textlayout.Provider

	Background domain.Color
	CardFill   domain.Color
	CardBorder domain.Stroke
}

const placeholderHeight = 80

type sceneBlock struct {
	y, h    int
	header  textlayout.TextBox
	body    textlayout.TextBox
	img     image.Image
	imgH    int
	broken  bool
	caption textlayout.TextBox
}

// SceneSurface lays out a scene list as a vertical stack of cards: header in
// the accent colour, word-wrapped body, then the optional image scaled to the
// content width.
type SceneSurface struct {
	mu      sync.Mutex
	scenes  []domain.Scene
	opts    SurfaceOptions
	blocks  []sceneBlock
	height  int
	laidOut bool
}

var defaultProvider = sync.OnceValue(func() textlayout.Provider {
	return textlayout.OTProvider{Lib: textlayout.DefaultLibrary()}
})

// NewProvider returns the default font provider, with fontPath (if set)
// replacing the regular body face.
func NewProvider(fontPath string) (textlayout.Provider, error) {
	if fontPath == "" {
		return defaultProvider(), nil
	}
	lib := textlayout.DefaultLibrary()
	if err := lib.LoadTTF(textlayout.DefaultFamily, 400, false, fontPath); err != nil {
		return nil, err
	}
	return textlayout.OTProvider{Lib: lib}, nil
}

// NewSceneSurface creates a surface for scenes. The scene slice is only read.
func NewSceneSurface(scenes []domain.Scene, opts SurfaceOptions) *SceneSurface {
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	if opts.Padding <= 0 {
		opts.Padding = 16
	}
	if opts.Gap <= 0 {
		opts.Gap = 12
	}
	if opts.Provider == nil {
		opts.Provider = defaultProvider()
	}
	if opts.Background == (domain.Color{}) {
		opts.Background = domain.Color{R: 255, G: 255, B: 255, A: 255}
	}
	if opts.CardFill == (domain.Color{}) {
		opts.CardFill = domain.Color{R: 243, G: 244, B: 246, A: 255}
	}
	if opts.CardBorder.Width == 0 {
		opts.CardBorder = domain.Stroke{Color: domain.Color{R: 209, G: 213, B: 219, A: 255}, Width: 1}
	}
	return &SceneSurface{scenes: scenes, opts: opts}
}

// SetIncludeImages toggles image rendering and invalidates the layout when the value changes.
func (s *SceneSurface) SetIncludeImages(include bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.opts.IncludeImages
	if prev != include {
		s.opts.IncludeImages = include
		s.laidOut = false
	}
	return prev
}

// IncludeImages reports the current toggle value.
func (s *SceneSurface) IncludeImages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.IncludeImages
}

// Bounds implements Surface.
func (s *SceneSurface) Bounds() (image.Rectangle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return image.Rect(0, 0, s.opts.Width, s.height), s.laidOut
}

// Layout measures every scene card. It is cheap to call repeatedly.
func (s *SceneSurface) Layout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := applog.WithOperation(applog.WithComponent("render"), "layout")
	s.laidOut = false
	if s.opts.Width <= 0 {
		return fmt.Errorf("layout: invalid surface width %d", s.opts.Width)
	}
	contentW := s.opts.Width - 2*s.opts.Margin - 2*s.opts.Padding
	if contentW <= 0 {
		return fmt.Errorf("layout: margins leave no room for content (width %d)", s.opts.Width)
	}

	header := textlayout.MustStyle(textlayout.StyleHeader)
	body := textlayout.MustStyle(textlayout.StyleBody)
	caption := textlayout.MustStyle(textlayout.StyleCaption)
	wrap := func(st textlayout.TextStyle, text string) (textlayout.TextBox, error) {
		lay := &textlayout.WordWrapLayouter{Provider: s.opts.Provider, Leading: st.Leading}
		return lay.Layout([]textlayout.Span{{Text: text, Font: st.Font}}, float32(contentW))
	}

	blocks := make([]sceneBlock, 0, len(s.scenes))
	y := s.opts.Margin
	for _, sc := range s.scenes {
		if err := ctx.Err(); err != nil {
			return err
		}
		var b sceneBlock
		var err error
		var sections []int
		if sc.Header != "" {
			if b.header, err = wrap(header, sc.Header); err != nil {
				return fmt.Errorf("layout header of scene %d: %w", sc.Index, err)
			}
			sections = append(sections, ceil(b.header.Height))
		}
		if sc.Body != "" {
			if b.body, err = wrap(body, sc.Body); err != nil {
				return fmt.Errorf("layout body of scene %d: %w", sc.Index, err)
			}
			sections = append(sections, ceil(b.body.Height))
		}
		if s.opts.IncludeImages && sc.HasImage() {
			img, derr := DecodeImage(*sc.Image, contentW)
			if derr != nil {
				l.Warn("scene image unavailable, drawing placeholder",
					slog.Int("scene", sc.Index), slog.String("mime", sc.Image.MimeType), slog.Any("err", derr))
				b.broken = true
				b.imgH = placeholderHeight
				if b.caption, err = wrap(caption, "image unavailable"); err != nil {
					return fmt.Errorf("layout placeholder of scene %d: %w", sc.Index, err)
				}
			} else {
				if img.Bounds().Dx() > contentW {
					img = imaging.Resize(img, contentW, 0, imaging.Lanczos)
				}
				b.img = img
				b.imgH = img.Bounds().Dy()
			}
			sections = append(sections, b.imgH)
		}
		h := 2 * s.opts.Padding
		for i, sh := range sections {
			if i > 0 {
				h += s.opts.Gap
			}
			h += sh
		}
		b.y, b.h = y, h
		blocks = append(blocks, b)
		y += h + s.opts.Gap
	}
	if len(blocks) == 0 {
		s.blocks, s.height = nil, 0
	} else {
		s.blocks, s.height = blocks, y-s.opts.Gap+s.opts.Margin
	}
	s.laidOut = true
	l.Debug("layout complete", slog.Int("scenes", len(blocks)), slog.Int("height", s.height),
		slog.Bool("images", s.opts.IncludeImages))
	return nil
}

// Draw implements Surface.
func (s *SceneSurface) Draw(dst *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.laidOut {
		return errors.New("surface not laid out")
	}
	if dst.Bounds().Dx() < s.opts.Width || dst.Bounds().Dy() < s.height {
		return fmt.Errorf("destination %v smaller than surface %dx%d", dst.Bounds(), s.opts.Width, s.height)
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(s.opts.Background.RGBA()), image.Point{}, draw.Src)

	header := textlayout.MustStyle(textlayout.StyleHeader)
	body := textlayout.MustStyle(textlayout.StyleBody)
	caption := textlayout.MustStyle(textlayout.StyleCaption)
	x0 := s.opts.Margin
	x1 := s.opts.Width - s.opts.Margin - 1
	cx := x0 + s.opts.Padding
	for _, b := range s.blocks {
		fillRect(dst, x0, b.y, x1, b.y+b.h-1, s.opts.CardFill.RGBA())
		for i := 0; i < int(math.Max(1, s.opts.CardBorder.Width)); i++ {
			strokeRect(dst, x0+i, b.y+i, x1-i, b.y+b.h-1-i, s.opts.CardBorder.Color.RGBA())
		}
		y := b.y + s.opts.Padding
		next := func(h int) { y += h + s.opts.Gap }
		if len(b.header.Lines) > 0 {
			s.drawText(dst, b.header, header, cx, y)
			next(ceil(b.header.Height))
		}
		if len(b.body.Lines) > 0 {
			s.drawText(dst, b.body, body, cx, y)
			next(ceil(b.body.Height))
		}
		switch {
		case b.img != nil:
			draw.Draw(dst, image.Rect(cx, y, cx+b.img.Bounds().Dx(), y+b.imgH), b.img, b.img.Bounds().Min, draw.Over)
		case b.broken:
			cw := s.opts.Width - 2*s.opts.Margin - 2*s.opts.Padding
			fillRect(dst, cx, y, cx+cw-1, y+b.imgH-1, color.RGBA{229, 231, 235, 255})
			strokeRect(dst, cx, y, cx+cw-1, y+b.imgH-1, color.RGBA{156, 163, 175, 255})
			s.drawText(dst, b.caption, caption, cx+8, y+(b.imgH-ceil(b.caption.Height))/2)
		}
	}
	return nil
}

func (s *SceneSurface) drawText(dst *image.RGBA, box textlayout.TextBox, st textlayout.TextStyle, x, y int) {
	face, met := s.opts.Provider.Resolve(st.Font)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(st.Color.RGBA()), Face: face}
	lineY := float32(y)
	for _, ln := range box.Lines {
		d.Dot = fixed.P(x, int(lineY+ln.Ascent))
		d.DrawString(ln.Text())
		lineY += ln.Ascent + ln.Descent + met.LineGap + st.Leading
	}
}

func ceil(v float32) int { return int(math.Ceil(float64(v))) }

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	draw.Draw(img, image.Rect(x0, y0, x1+1, y1+1), image.NewUniform(col), image.Point{}, draw.Src)
}
