/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/textlayout"
)

func pngRef(t *testing.T, w, h int) *domain.ImageRef {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &domain.ImageRef{Data: buf.Bytes(), MimeType: "image/png"}
}

func testScenes(t *testing.T) []domain.Scene {
	return []domain.Scene{
		{Index: 0, Header: "INT. ROOM - DAY", Body: "Hello world. A long line of dialogue that should wrap at least once inside the card.", Image: pngRef(t, 100, 50)},
		{Index: 1, Header: "EXT. STREET - NIGHT", Body: "Goodbye"},
	}
}

func newTestSurface(t *testing.T, include bool) *SceneSurface {
	return NewSceneSurface(testScenes(t), SurfaceOptions{Width: 400, Margin: 10, IncludeImages: include, Provider: textlayout.BasicProvider{}})
}

func TestCaptureRequiresLayout(t *testing.T) {
	s := newTestSurface(t, true)
	if _, err := (BitmapRasterizer{}).Capture(context.Background(), s); !errors.Is(err, ErrRenderUnavailable) {
		t.Fatalf("expected ErrRenderUnavailable, got %v", err)
	}
	if _, err := (BitmapRasterizer{}).Capture(context.Background(), nil); !errors.Is(err, ErrRenderUnavailable) {
		t.Fatalf("expected ErrRenderUnavailable for nil surface, got %v", err)
	}
}

func TestCaptureAfterLayout(t *testing.T) {
	s := newTestSurface(t, true)
	if err := s.Layout(context.Background()); err != nil {
		t.Fatalf("layout: %v", err)
	}
	img, err := (BitmapRasterizer{}).Capture(context.Background(), s)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	b, _ := s.Bounds()
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != b.Dy() || b.Dy() <= 0 {
		t.Fatalf("unexpected bitmap size %v (surface %v)", img.Bounds(), b)
	}
	// the margin stays background white, the card is filled
	if got := img.RGBAAt(2, 2); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("margin pixel = %v", got)
	}
	if got := img.RGBAAt(200, 12); got != (color.RGBA{243, 244, 246, 255}) {
		t.Fatalf("card pixel = %v", got)
	}
}

func TestImageToggleChangesHeightAndInvalidates(t *testing.T) {
	s := newTestSurface(t, true)
	ctx := context.Background()
	if err := s.Layout(ctx); err != nil {
		t.Fatalf("layout: %v", err)
	}
	with, _ := s.Bounds()
	if prev := s.SetIncludeImages(false); !prev {
		t.Fatalf("previous toggle should be true")
	}
	if _, ok := s.Bounds(); ok {
		t.Fatalf("toggle should invalidate layout")
	}
	if err := s.Layout(ctx); err != nil {
		t.Fatalf("layout: %v", err)
	}
	without, _ := s.Bounds()
	// 50px image plus one section gap
	if with.Dy()-without.Dy() != 62 {
		t.Fatalf("height delta = %d, want 62", with.Dy()-without.Dy())
	}
	if s.SetIncludeImages(false) {
		t.Fatalf("previous toggle should be false")
	}
	if _, ok := s.Bounds(); !ok {
		t.Fatalf("setting the same value must keep the layout")
	}
}

func TestBrokenImageGetsPlaceholder(t *testing.T) {
	scenes := []domain.Scene{{Index: 0, Header: "INT. A", Image: &domain.ImageRef{Data: []byte("garbage"), MimeType: "image/png"}}}
	s := NewSceneSurface(scenes, SurfaceOptions{Width: 300, IncludeImages: true, Provider: textlayout.BasicProvider{}})
	if err := s.Layout(context.Background()); err != nil {
		t.Fatalf("layout: %v", err)
	}
	b, _ := s.Bounds()
	if b.Dy() < placeholderHeight {
		t.Fatalf("placeholder not accounted for: %v", b)
	}
	if _, err := (BitmapRasterizer{}).Capture(context.Background(), s); err != nil {
		t.Fatalf("capture with broken image: %v", err)
	}
}

func TestLayoutHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestSurface(t, false)
	if err := s.Layout(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := s.Bounds(); ok {
		t.Fatalf("cancelled layout must not be marked complete")
	}
}

func TestEmptySurfaceIsUnavailable(t *testing.T) {
	s := NewSceneSurface(nil, SurfaceOptions{Width: 300, Provider: textlayout.BasicProvider{}})
	if err := s.Layout(context.Background()); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if _, err := (BitmapRasterizer{}).Capture(context.Background(), s); !errors.Is(err, ErrRenderUnavailable) {
		t.Fatalf("expected ErrRenderUnavailable, got %v", err)
	}
}

func TestDecodeImageSVGAndRaster(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="20" height="10" viewBox="0 0 20 10"><rect x="0" y="0" width="20" height="10" fill="#ff0000"/></svg>`)
	img, err := DecodeImage(domain.ImageRef{Data: svg, MimeType: "image/svg+xml"}, 40)
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Fatalf("svg size = %v", img.Bounds())
	}
	r, g, _, _ := img.At(20, 10).RGBA()
	if r>>8 < 200 || g>>8 > 60 {
		t.Fatalf("svg not filled red at centre: r=%d g=%d", r>>8, g>>8)
	}
	raster, err := DecodeImage(*pngRef(t, 7, 3), 0)
	if err != nil || raster.Bounds().Dx() != 7 {
		t.Fatalf("png decode: %v %v", raster, err)
	}
	if _, err := DecodeImage(domain.ImageRef{}, 0); !errors.Is(err, ErrNoImageData) {
		t.Fatalf("expected ErrNoImageData, got %v", err)
	}
}

// oversizedPNG returns a tiny png whose header claims w x h pixels.
func oversizedPNG(t *testing.T, w, h uint32) *domain.ImageRef {
	t.Helper()
	ref := pngRef(t, 1, 1)
	data := append([]byte(nil), ref.Data...)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return &domain.ImageRef{Data: data, MimeType: "image/png"}
}

func TestDecodeImageRejectsOversizedHeader(t *testing.T) {
	if _, err := DecodeImage(*oversizedPNG(t, 20000, 20000), 0); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if _, err := DecodeImage(*oversizedPNG(t, 10000, 10000), 0); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("pixel budget: expected ErrImageTooLarge, got %v", err)
	}

	scenes := []domain.Scene{{Index: 0, Header: "INT. A", Image: oversizedPNG(t, 40000, 40000)}}
	s := NewSceneSurface(scenes, SurfaceOptions{Width: 300, IncludeImages: true, Provider: textlayout.BasicProvider{}})
	if err := s.Layout(context.Background()); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if b, _ := s.Bounds(); b.Dy() < placeholderHeight {
		t.Fatalf("oversized image should fall back to the placeholder: %v", b)
	}
}
