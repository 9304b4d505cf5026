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
	"encoding/xml"
	"fmt"
	"image/png"
	"io"

	"go.uber.org/multierr"

	"goscriptwriter/internal/domain"
)

// CBZOptions carries ComicInfo.xml metadata.
type CBZOptions struct {
	Writer  string
	Summary string
}

type comicInfo struct {
	XMLName          xml.Name `xml:"ComicInfo"`
	XSI              string   `xml:"xmlns:xsi,attr"`
	Series           string   `xml:"Series"`
	Title            string   `xml:"Title"`
	Number           int      `xml:"Number"`
	PageCount        int      `xml:"PageCount"`
	Writer           string   `xml:"Writer,omitempty"`
	Summary          string   `xml:"Summary,omitempty"`
	ReadingDirection string   `xml:"ReadingDirection"`
}

// WriteCBZ packages the pages as PNG images into a CBZ (ZIP) archive with a
// ComicInfo.xml manifest for reader compatibility.
func WriteCBZ(w io.Writer, doc *domain.Document, opt CBZOptions) (err error) {
	if doc.PageCount() == 0 {
		return ErrNoPages
	}
	zw := zip.NewWriter(w)
	defer func() { err = multierr.Append(err, zw.Close()) }()

	pad := padWidth(doc.PageCount())
	var buf bytes.Buffer
	for _, pg := range doc.Pages {
		buf.Reset()
		if err := png.Encode(&buf, pg.Image); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		if err := addZipFile(zw, fmt.Sprintf("%0*d.png", pad, pg.Number), buf.Bytes()); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
	}

	manifest, err := buildComicInfoXML(doc, opt)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	if err := addZipFile(zw, "ComicInfo.xml", manifest); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func buildComicInfoXML(doc *domain.Document, opt CBZOptions) ([]byte, error) {
	title := doc.Title
	if title == "" {
		title = "Untitled Script"
	}
	info := comicInfo{
		XSI:              "http://www.w3.org/2001/XMLSchema-instance",
		Series:           title,
		Title:            title,
		Number:           1,
		PageCount:        doc.PageCount(),
		Writer:           opt.Writer,
		Summary:          opt.Summary,
		ReadingDirection: "LeftToRight",
	}
	body, err := xml.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
