/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"goscriptwriter/internal/domain"
)

// WritePNGPages writes every page as page-<n>.png into dir and returns the file paths.
// Page numbers are zero padded when the document has 10 or more pages.
func WritePNGPages(dir string, doc *domain.Document) ([]string, error) {
	if doc.PageCount() == 0 {
		return nil, ErrNoPages
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	pad := padWidth(doc.PageCount())
	paths := make([]string, 0, doc.PageCount())
	for _, pg := range doc.Pages {
		name := filepath.Join(dir, fmt.Sprintf("page-%0*d.png", pad, pg.Number))
		if err := writePNGFile(name, pg); err != nil {
			return paths, err
		}
		paths = append(paths, name)
	}
	return paths, nil
}

// WritePNGZip streams every page as page-<n>.png into a single zip archive.
func WritePNGZip(w io.Writer, doc *domain.Document) (err error) {
	if doc.PageCount() == 0 {
		return ErrNoPages
	}
	zw := zip.NewWriter(w)
	defer func() { err = multierr.Append(err, zw.Close()) }()
	pad := padWidth(doc.PageCount())
	for _, pg := range doc.Pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, pg.Image); err != nil {
			return fmt.Errorf("encode page %d: %w", pg.Number, err)
		}
		if err := addZipFile(zw, fmt.Sprintf("page-%0*d.png", pad, pg.Number), buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writePNGFile(name string, pg domain.PageBitmap) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	if err := png.Encode(f, pg.Image); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func padWidth(n int) int {
	switch {
	case n >= 1000:
		return 4
	case n >= 100:
		return 3
	case n >= 10:
		return 2
	default:
		return 1
	}
}
