/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"goscriptwriter/internal/domain"
)

// ErrInvalidDimensions is returned when a bitmap or page has a non-positive size.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// maxPages bounds a single export.
const maxPages = 10000

// Slice is the part of the source covered by one page, in page units.
// End is exclusive.
type Slice struct {
	Page       int
	Start, End float64
}

// PlanSlices divides a height h into N = ceil(h/p) equal slices. Equal
// slices keep the last page from being a short remainder.
func PlanSlices(h, p float64) ([]Slice, error) {
	if !(h > 0) || !(p > 0) || math.IsInf(h, 0) || math.IsInf(p, 0) {
		return nil, fmt.Errorf("%w: height %v, page height %v", ErrInvalidDimensions, h, p)
	}
	// tolerate float noise so an exact multiple does not gain a page
	n := int(math.Ceil(h/p - 1e-9))
	if n < 1 {
		n = 1
	}
	if n > maxPages {
		return nil, fmt.Errorf("%w: %d pages exceeds the limit of %d", ErrInvalidDimensions, n, maxPages)
	}
	step := h / float64(n)
	out := make([]Slice, n)
	for k := range out {
		out[k] = Slice{Page: k + 1, Start: float64(k) * step, End: float64(k+1) * step}
	}
	out[n-1].End = h
	return out, nil
}

// Paginate slices a tall bitmap into pageW x pageH pages. The source width is
// mapped to the page width; each slice keeps its aspect ratio and is drawn at
// the top of a white page.
func Paginate(ctx context.Context, src *image.RGBA, pageW, pageH int) ([]domain.PageBitmap, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no source bitmap", ErrInvalidDimensions)
	}
	sb := src.Bounds()
	srcW, srcH := sb.Dx(), sb.Dy()
	if srcW <= 0 || srcH <= 0 || pageW <= 0 || pageH <= 0 {
		return nil, fmt.Errorf("%w: source %dx%d, page %dx%d", ErrInvalidDimensions, srcW, srcH, pageW, pageH)
	}
	// source height expressed in page units
	scale := float64(pageW) / float64(srcW)
	slices, err := PlanSlices(float64(srcH)*scale, float64(pageH))
	if err != nil {
		return nil, err
	}

	pages := make([]domain.PageBitmap, 0, len(slices))
	white := image.NewUniform(color.RGBA{255, 255, 255, 255})
	for _, s := range slices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y0 := clamp(int(math.Round(s.Start/scale)), 0, srcH)
		y1 := clamp(int(math.Round(s.End/scale)), y0, srcH)
		dh := clamp(int(math.Round(float64(y1-y0)*scale)), 0, pageH)

		page := image.NewRGBA(image.Rect(0, 0, pageW, pageH))
		draw.Draw(page, page.Bounds(), white, image.Point{}, draw.Src)
		if y1 > y0 && dh > 0 {
			srcRect := image.Rect(sb.Min.X, sb.Min.Y+y0, sb.Max.X, sb.Min.Y+y1)
			draw.CatmullRom.Scale(page, image.Rect(0, 0, pageW, dh), src, srcRect, draw.Over, nil)
		}
		pages = append(pages, domain.PageBitmap{Number: s.Page, Image: page, ContentHeight: dh})
	}
	return pages, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
