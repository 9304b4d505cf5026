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
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"goscriptwriter/internal/domain"
)

const (
	defaultSVGSize = 512
	maxRasterDim   = 4096
	maxDecodeDim   = 16384
	maxPixels      = 64 << 20
)

var (
	// ErrNoImageData is returned for empty image references.
	ErrNoImageData = errors.New("image has no data")
	// ErrImageTooLarge is returned when a raster header claims more pixels than we decode.
	ErrImageTooLarge = errors.New("image too large")
)

// DecodeImage decodes an embedded image. Raster formats use the registered
// decoders (png, jpeg, gif, webp, bmp, tiff) after a header size check;
// SVG is rasterized to width w, or to its own viewBox size when w <= 0.
func DecodeImage(ref domain.ImageRef, w int) (image.Image, error) {
	if len(ref.Data) == 0 {
		return nil, ErrNoImageData
	}
	if isSVG(ref) {
		img, err := rasterizeSVG(ref.Data, w)
		if err != nil {
			return nil, fmt.Errorf("rasterize svg: %w", err)
		}
		return img, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(ref.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref.MimeType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxDecodeDim || cfg.Height > maxDecodeDim ||
		int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(ref.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref.MimeType, err)
	}
	return img, nil
}

func isSVG(ref domain.ImageRef) bool {
	if strings.HasPrefix(ref.MimeType, "image/svg") {
		return true
	}
	head := ref.Data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<svg"))
}

func rasterizeSVG(data []byte, targetW int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	intrW := int(math.Ceil(icon.ViewBox.W))
	intrH := int(math.Ceil(icon.ViewBox.H))
	if intrW <= 0 {
		intrW = defaultSVGSize
	}
	if intrH <= 0 {
		intrH = defaultSVGSize
	}
	w, h := intrW, intrH
	if targetW > 0 {
		w = targetW
		h = int(math.Round(float64(w) * float64(intrH) / float64(intrW)))
	}
	w = min(max(w, 1), maxRasterDim)
	h = min(max(h, 1), maxRasterDim)

	icon.SetTarget(0, 0, float64(w), float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}
