/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"image"
	"strings"
	"testing"
)

func TestSceneJSONOmitsMissingImage(t *testing.T) {
	s := Scene{Index: 0, Header: "INT. ROOM - DAY", Body: "Hello world"}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "image") {
		t.Fatalf("absent image should be omitted: %s", b)
	}
	if s.HasImage() {
		t.Fatalf("HasImage() = true for scene without image")
	}
	s.Image = &ImageRef{Data: []byte{1}, MimeType: "image/png"}
	if !s.HasImage() {
		t.Fatalf("HasImage() = false for scene with image")
	}
}

func TestDocumentDimensions(t *testing.T) {
	var nilDoc *Document
	if nilDoc.PageCount() != 0 || nilDoc.Width() != 0 {
		t.Fatalf("nil document should report zero size")
	}
	d := &Document{Pages: []PageBitmap{
		{Number: 1, Image: image.NewRGBA(image.Rect(0, 0, 100, 140))},
		{Number: 2, Image: image.NewRGBA(image.Rect(0, 0, 100, 140))},
	}}
	if d.PageCount() != 2 || d.Width() != 100 || d.Height() != 140 {
		t.Fatalf("unexpected dims: count=%d w=%d h=%d", d.PageCount(), d.Width(), d.Height())
	}
}

func TestColorRGBA(t *testing.T) {
	c := Color{R: 1, G: 2, B: 3, A: 4}.RGBA()
	if c.R != 1 || c.G != 2 || c.B != 3 || c.A != 4 {
		t.Fatalf("unexpected conversion: %+v", c)
	}
}
