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
	"log/slog"

	applog "goscriptwriter/internal/log"
)

// ErrRenderUnavailable reports that a surface could not be captured, usually
// because it has not been laid out yet. Callers retry after layout completes.
var ErrRenderUnavailable = errors.New("render surface unavailable")

// Surface is something that can paint itself into a bitmap.
type Surface interface {
	// Bounds returns the full rendered extent and whether layout is complete.
	Bounds() (image.Rectangle, bool)
	// Draw paints the whole surface into dst, which has at least Bounds() size.
	Draw(dst *image.RGBA) error
}

// Layouter is implemented by surfaces that need an explicit layout pass.
type Layouter interface {
	Layout(ctx context.Context) error
}

// ImageToggler is implemented by surfaces that can hide embedded images.
// SetIncludeImages returns the previous value.
type ImageToggler interface {
	SetIncludeImages(include bool) bool
}

// Rasterizer captures a surface into one tall bitmap.
type Rasterizer interface {
	Capture(ctx context.Context, s Surface) (*image.RGBA, error)
}

// BitmapRasterizer captures surfaces into an in-memory RGBA bitmap.
type BitmapRasterizer struct{}

// Capture never returns a partially drawn bitmap: any failure yields ErrRenderUnavailable.
func (BitmapRasterizer) Capture(ctx context.Context, s Surface) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: no surface", ErrRenderUnavailable)
	}
	b, ok := s.Bounds()
	if !ok {
		return nil, fmt.Errorf("%w: surface not laid out", ErrRenderUnavailable)
	}
	if b.Empty() {
		return nil, fmt.Errorf("%w: surface is empty", ErrRenderUnavailable)
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if err := s.Draw(dst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderUnavailable, err)
	}
	applog.WithOperation(applog.WithComponent("render"), "capture").Debug("surface captured",
		slog.Int("width", b.Dx()), slog.Int("height", b.Dy()))
	return dst, nil
}
