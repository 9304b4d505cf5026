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
	"fmt"
	"log/slog"
	"time"

	"goscriptwriter/internal/domain"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/render"
)

// ExportOptions configures one export call. Nothing carries over between calls.
type ExportOptions struct {
	PageWidth     int
	PageHeight    int
	IncludeImages bool
	Title         string
}

// Exporter runs the rasterize-then-paginate pipeline.
type Exporter struct {
	Rasterizer render.Rasterizer
}

// NewExporter returns an Exporter; a nil rasterizer uses render.BitmapRasterizer.
func NewExporter(r render.Rasterizer) *Exporter {
	if r == nil {
		r = render.BitmapRasterizer{}
	}
	return &Exporter{Rasterizer: r}
}

// Export lays out and captures the surface, then paginates the bitmap.
// Pagination starts only once capture has finished. The surface's image
// toggle is restored on every return path, and either all pages are
// returned or none.
func (e *Exporter) Export(ctx context.Context, s render.Surface, opts ExportOptions) (_ *domain.Document, err error) {
	l := applog.WithOperation(applog.WithComponent("export"), "export")
	start := time.Now()
	if opts.PageWidth <= 0 || opts.PageHeight <= 0 {
		return nil, fmt.Errorf("%w: page %dx%d", ErrInvalidDimensions, opts.PageWidth, opts.PageHeight)
	}
	rz := e.Rasterizer
	if rz == nil {
		rz = render.BitmapRasterizer{}
	}

	if t, ok := s.(render.ImageToggler); ok {
		prev := t.SetIncludeImages(opts.IncludeImages)
		defer t.SetIncludeImages(prev)
	}
	defer func() {
		if err != nil {
			l.WarnContext(ctx, "export aborted", slog.Any("err", err))
		}
	}()

	if lay, ok := s.(render.Layouter); ok {
		if err := lay.Layout(ctx); err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}
	}
	bitmap, err := rz.Capture(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := Paginate(ctx, bitmap, opts.PageWidth, opts.PageHeight)
	if err != nil {
		return nil, fmt.Errorf("paginate: %w", err)
	}
	l.InfoContext(ctx, "document exported",
		slog.Int("pages", len(pages)),
		slog.Int("source_height", bitmap.Bounds().Dy()),
		slog.Bool("images", opts.IncludeImages),
		slog.Duration("took", time.Since(start)),
	)
	return &domain.Document{Title: opts.Title, Pages: pages}, nil
}
