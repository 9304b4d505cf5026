/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"image"
	"image/color"
)

// This file defines the data model shared by the parser, the renderer and the exporters.
// Values are created once per parse or export call and are not mutated afterwards.

// ImageRef is an image that was embedded inline in a raw script.
type ImageRef struct {
	// Position is the byte offset of the embed in the original raw text.
	Position int    `json:"position"`
	Data     []byte `json:"data"`
	MimeType string `json:"mimeType"`
	Alt      string `json:"alt,omitempty"`
}

// Scene is one segment of a parsed script.
type Scene struct {
	Index  int       `json:"index"`
	Header string    `json:"header"`
	Body   string    `json:"body"`
	Image  *ImageRef `json:"image,omitempty"`
}

// HasImage reports whether an image was assigned to the scene.
func (s Scene) HasImage() bool { return s.Image != nil && len(s.Image.Data) > 0 }

// PageBitmap is a single rasterized page of an exported document.
type PageBitmap struct {
	Number int         `json:"number"` // 1-based
	Image  *image.RGBA `json:"-"`
	// ContentHeight is the number of rows carrying source pixels; the rest is padding.
	ContentHeight int `json:"contentHeight"`
}

// Document is the result of one export job.
type Document struct {
	Title string       `json:"title"`
	Pages []PageBitmap `json:"pages"`
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// Width returns the shared pixel width of the pages, or 0 for an empty document.
func (d *Document) Width() int {
	if d.PageCount() == 0 || d.Pages[0].Image == nil {
		return 0
	}
	return d.Pages[0].Image.Bounds().Dx()
}

// Height returns the pixel height of the pages, or 0 for an empty document.
func (d *Document) Height() int {
	if d.PageCount() == 0 || d.Pages[0].Image == nil {
		return 0
	}
	return d.Pages[0].Image.Bounds().Dy()
}

type Color struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
	A uint8 `json:"a" yaml:"a"`
}

// RGBA converts to the standard library color type.
func (c Color) RGBA() color.RGBA { return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

type Stroke struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}
