/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/version"
)

// ErrNoPages is returned by writers given an empty document.
var ErrNoPages = errors.New("document has no pages")

// PDFOptions controls PDF output.
// PageFormat picks the physical page width (A4 or Letter); the page height
// follows the bitmap aspect ratio so pages are never stretched.
type PDFOptions struct {
	PageFormat string
}

// WritePDF writes one full-page image per PageBitmap.
func WritePDF(w io.Writer, doc *domain.Document, opt PDFOptions) error {
	if doc.PageCount() == 0 || doc.Width() == 0 {
		return ErrNoPages
	}
	paper, err := lookupPaper(opt.PageFormat)
	if err != nil {
		return err
	}
	wPt := paper.widthPt
	hPt := wPt * float64(doc.Height()) / float64(doc.Width())
	size := gofpdf.SizeType{Wd: wPt, Ht: hPt}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size, OrientationStr: "P"})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if doc.Title != "" {
		pdf.SetTitle(doc.Title, true)
	}
	pdf.SetCreator("GoScriptWriter "+version.String(), false)

	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	var buf bytes.Buffer
	for _, pg := range doc.Pages {
		if pg.Image == nil {
			return fmt.Errorf("page %d has no bitmap", pg.Number)
		}
		buf.Reset()
		if err := png.Encode(&buf, pg.Image); err != nil {
			return fmt.Errorf("encode page %d: %w", pg.Number, err)
		}
		name := fmt.Sprintf("page-%d", pg.Number)
		pdf.AddPageFormat("P", size)
		pdf.RegisterImageOptionsReader(name, imgOpt, bytes.NewReader(buf.Bytes()))
		pdf.ImageOptions(name, 0, 0, wPt, hPt, false, imgOpt, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("pdf page %d: %w", pg.Number, err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
