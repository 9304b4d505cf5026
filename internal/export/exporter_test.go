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
	"testing"

	"goscriptwriter/internal/render"
)

type fakeSurface struct {
	include      bool
	laid         bool
	height       int
	drawnInclude []bool
	layoutErr    error
}

func (f *fakeSurface) Bounds() (image.Rectangle, bool) {
	return image.Rect(0, 0, 100, f.height), f.laid
}

func (f *fakeSurface) Draw(dst *image.RGBA) error {
	f.drawnInclude = append(f.drawnInclude, f.include)
	return nil
}

func (f *fakeSurface) Layout(context.Context) error {
	if f.layoutErr != nil {
		return f.layoutErr
	}
	f.laid = true
	return nil
}

func (f *fakeSurface) SetIncludeImages(v bool) bool {
	prev := f.include
	if prev != v {
		f.laid = false
	}
	f.include = v
	return prev
}

type failingRasterizer struct{}

func (failingRasterizer) Capture(context.Context, render.Surface) (*image.RGBA, error) {
	return nil, render.ErrRenderUnavailable
}

func TestExportPaginatesAndRestoresToggle(t *testing.T) {
	s := &fakeSurface{height: 250}
	doc, err := NewExporter(nil).Export(context.Background(), s, ExportOptions{PageWidth: 100, PageHeight: 100, IncludeImages: true, Title: "T"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.PageCount() != 3 || doc.Title != "T" || doc.Width() != 100 {
		t.Fatalf("unexpected document: pages=%d title=%q width=%d", doc.PageCount(), doc.Title, doc.Width())
	}
	if len(s.drawnInclude) != 1 || !s.drawnInclude[0] {
		t.Fatalf("surface should be drawn once with images on, got %v", s.drawnInclude)
	}
	if s.include {
		t.Fatalf("image toggle not restored")
	}
}

func TestExportFailureRestoresToggle(t *testing.T) {
	s := &fakeSurface{height: 250, include: true}
	exp := NewExporter(failingRasterizer{})
	doc, err := exp.Export(context.Background(), s, ExportOptions{PageWidth: 100, PageHeight: 100, IncludeImages: false})
	if !errors.Is(err, render.ErrRenderUnavailable) || doc != nil {
		t.Fatalf("expected ErrRenderUnavailable and no document, got %v %v", doc, err)
	}
	if !s.include {
		t.Fatalf("image toggle not restored after failure")
	}

	s = &fakeSurface{height: 250, include: true, layoutErr: errors.New("boom")}
	if _, err := NewExporter(nil).Export(context.Background(), s, ExportOptions{PageWidth: 100, PageHeight: 100}); err == nil {
		t.Fatalf("expected layout error")
	}
	if !s.include {
		t.Fatalf("image toggle not restored after layout failure")
	}
}

func TestExportInvalidPageSize(t *testing.T) {
	s := &fakeSurface{height: 250}
	_, err := NewExporter(nil).Export(context.Background(), s, ExportOptions{PageWidth: 100, PageHeight: 0, IncludeImages: true})
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("expected ErrInvalidDimensions, got %v", err)
	}
	if s.include || len(s.drawnInclude) != 0 {
		t.Fatalf("surface must be untouched")
	}
}

func TestExportEmptySurface(t *testing.T) {
	s := &fakeSurface{height: 0}
	_, err := NewExporter(nil).Export(context.Background(), s, ExportOptions{PageWidth: 100, PageHeight: 100})
	if !errors.Is(err, render.ErrRenderUnavailable) {
		t.Fatalf("expected ErrRenderUnavailable, got %v", err)
	}
}
