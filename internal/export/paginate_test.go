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
	"image"
	"image/color"
	"math"
	"testing"
)

func TestPlanSlicesEqualParts(t *testing.T) {
	slices, err := PlanSlices(2000, 800)
	if err != nil {
		t.Fatalf("PlanSlices: %v", err)
	}
	if len(slices) != 3 {
		t.Fatalf("expected 3 slices, got %d", len(slices))
	}
	want := [][2]float64{{0, 666.7}, {666.7, 1333.3}, {1333.3, 2000}}
	for i, s := range slices {
		if s.Page != i+1 {
			t.Fatalf("slice %d has page %d", i, s.Page)
		}
		if math.Abs(s.Start-want[i][0]) > 0.05 || math.Abs(s.End-want[i][1]) > 0.05 {
			t.Fatalf("slice %d = [%v,%v), want about [%v,%v)", i, s.Start, s.End, want[i][0], want[i][1])
		}
		if i > 0 && s.Start != slices[i-1].End {
			t.Fatalf("slices %d and %d are not contiguous", i-1, i)
		}
	}
}

func TestPlanSlicesCounts(t *testing.T) {
	cases := []struct {
		h, p float64
		n    int
	}{
		{1600, 800, 2},
		{1601, 800, 3},
		{10, 800, 1},
		{800, 800, 1},
	}
	for _, c := range cases {
		got, err := PlanSlices(c.h, c.p)
		if err != nil || len(got) != c.n {
			t.Fatalf("PlanSlices(%v,%v) = %d slices, err %v; want %d", c.h, c.p, len(got), err, c.n)
		}
	}
}

func TestPlanSlicesInvalidDimensions(t *testing.T) {
	for _, c := range [][2]float64{{0, 800}, {2000, 0}, {-1, 800}, {2000, -5}, {math.NaN(), 800}} {
		got, err := PlanSlices(c[0], c[1])
		if !errors.Is(err, ErrInvalidDimensions) {
			t.Fatalf("PlanSlices(%v,%v) err = %v, want ErrInvalidDimensions", c[0], c[1], err)
		}
		if got != nil {
			t.Fatalf("PlanSlices(%v,%v) returned slices on error", c[0], c[1])
		}
	}
}

// twoTone is w x h, red in the top half and blue in the bottom half.
func twoTone(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := color.RGBA{255, 0, 0, 255}
		if y >= h/2 {
			c = color.RGBA{0, 0, 255, 255}
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPaginateScalesAndSlices(t *testing.T) {
	// 400x1000 at page width 200 is 500 page units tall: 3 pages of ~166.7
	pages, err := Paginate(context.Background(), twoTone(400, 1000), 200, 200)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	total := 0
	for i, pg := range pages {
		if pg.Number != i+1 {
			t.Fatalf("page %d numbered %d", i, pg.Number)
		}
		if b := pg.Image.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
			t.Fatalf("page %d size %v", pg.Number, b)
		}
		if pg.ContentHeight < 166 || pg.ContentHeight > 167 {
			t.Fatalf("page %d content height %d", pg.Number, pg.ContentHeight)
		}
		// padding below the content stays white
		if got := pg.Image.RGBAAt(100, 199); got != (color.RGBA{255, 255, 255, 255}) {
			t.Fatalf("page %d padding pixel = %v", pg.Number, got)
		}
		total += pg.ContentHeight
	}
	if total < 499 || total > 501 {
		t.Fatalf("pages cover %d rows of 500", total)
	}
	if got := pages[0].Image.RGBAAt(100, 10); got.R < 200 || got.B > 50 {
		t.Fatalf("first page should start red, got %v", got)
	}
	if got := pages[2].Image.RGBAAt(100, 150); got.B < 200 || got.R > 50 {
		t.Fatalf("last page should end blue, got %v", got)
	}
}

func TestPaginateInvalidDimensions(t *testing.T) {
	ctx := context.Background()
	if _, err := Paginate(ctx, twoTone(10, 10), 10, 0); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("page height 0: %v", err)
	}
	if _, err := Paginate(ctx, image.NewRGBA(image.Rect(0, 0, 10, 0)), 10, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("empty source: %v", err)
	}
	if _, err := Paginate(ctx, nil, 10, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("nil source: %v", err)
	}
}

func TestPaginateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pages, err := Paginate(ctx, twoTone(10, 100), 10, 10)
	if !errors.Is(err, context.Canceled) || pages != nil {
		t.Fatalf("expected cancellation without pages, got %d pages, %v", len(pages), err)
	}
}

func TestPageSize(t *testing.T) {
	w, h, err := PageSize("A4", 0)
	if err != nil || w != 794 || h != 1123 {
		t.Fatalf("A4 = %dx%d, %v", w, h, err)
	}
	w, h, err = PageSize("letter", 816)
	if err != nil || w != 816 || h != 1056 {
		t.Fatalf("Letter = %dx%d, %v", w, h, err)
	}
	if _, _, err := PageSize("A3", 100); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
