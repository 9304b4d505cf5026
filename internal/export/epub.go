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
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"goscriptwriter/internal/domain"
)

// EPUBOptions controls EPUB export metadata.
type EPUBOptions struct {
	Title    string
	Author   string
	Language string // e.g., "en"
	// Modified is stamped into dcterms:modified; zero means now.
	Modified time.Time
	// Identifier is the package unique id; empty generates a urn:uuid.
	Identifier string
}

// WriteEPUB packages the document pages as a fixed-layout EPUB 3, one page image per spine item.
func WriteEPUB(w io.Writer, doc *domain.Document, opt EPUBOptions) (err error) {
	if doc.PageCount() == 0 {
		return ErrNoPages
	}
	if opt.Language == "" {
		opt.Language = "en"
	}
	if opt.Title == "" {
		opt.Title = doc.Title
	}
	if opt.Title == "" {
		opt.Title = "Untitled Script"
	}
	if opt.Modified.IsZero() {
		opt.Modified = time.Now()
	}
	if opt.Identifier == "" {
		opt.Identifier = "urn:uuid:" + uuid.NewString()
	}

	zw := zip.NewWriter(w)
	defer func() { err = multierr.Append(err, zw.Close()) }()

	// mimetype must come first and uncompressed
	if err := addStoredZipFile(zw, "mimetype", []byte("application/epub+zip"), opt.Modified); err != nil {
		return fmt.Errorf("write mimetype: %w", err)
	}
	containerXML := "" +
		"<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<container version=\"1.0\" xmlns=\"urn:oasis:names:tc:opendocument:xmlns:container\">\n" +
		"  <rootfiles>\n" +
		"    <rootfile full-path=\"OEBPS/content.opf\" media-type=\"application/oebps-package+xml\"/>\n" +
		"  </rootfiles>\n" +
		"</container>\n"
	if err := addZipFile(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
		return fmt.Errorf("write container.xml: %w", err)
	}
	css := "html, body, .page { margin:0; padding:0; width:100%; height:100%; }\n" +
		"img { width:100%; height:100%; object-fit:contain; }\n"
	if err := addZipFile(zw, "OEBPS/styles/epub.css", []byte(css)); err != nil {
		return fmt.Errorf("write css: %w", err)
	}

	pad := padWidth(doc.PageCount())
	nav := &bytes.Buffer{}
	nav.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	nav.WriteString("<html xmlns=\"http://www.w3.org/1999/xhtml\" xmlns:epub=\"http://www.idpf.org/2007/ops\">\n<head><title>Table of Contents</title></head>\n<body>\n")
	nav.WriteString("<nav epub:type=\"toc\" id=\"toc\"><ol>\n")
	items := &bytes.Buffer{}
	spine := &bytes.Buffer{}

	var imgBuf bytes.Buffer
	for _, pg := range doc.Pages {
		n := pg.Number
		imgBuf.Reset()
		if err := png.Encode(&imgBuf, pg.Image); err != nil {
			return fmt.Errorf("encode page %d: %w", n, err)
		}
		if err := addZipFile(zw, fmt.Sprintf("OEBPS/images/page-%0*d.png", pad, n), imgBuf.Bytes()); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
		b := pg.Image.Bounds()
		pageXHTML := fmt.Sprintf("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"+
			"<html xmlns=\"http://www.w3.org/1999/xhtml\">\n<head>\n"+
			"<meta charset=\"utf-8\"/>\n"+
			"<meta name=\"viewport\" content=\"width=%d, height=%d\"/>\n"+
			"<title>Page %d</title>\n"+
			"<link rel=\"stylesheet\" type=\"text/css\" href=\"styles/epub.css\"/>\n"+
			"</head>\n<body>\n<div class=\"page\"><img src=\"images/page-%0*d.png\" alt=\"Page %d\"/></div>\n"+
			"</body>\n</html>\n", b.Dx(), b.Dy(), n, pad, n, n)
		if err := addZipFile(zw, fmt.Sprintf("OEBPS/page-%0*d.xhtml", pad, n), []byte(pageXHTML)); err != nil {
			return fmt.Errorf("write page xhtml: %w", err)
		}
		fmt.Fprintf(nav, "<li><a href=\"page-%0*d.xhtml\">Page %d</a></li>\n", pad, n, n)
		cover := ""
		if n == 1 {
			cover = " properties=\"cover-image\""
		}
		fmt.Fprintf(items, "    <item id=\"img-%0*d\" href=\"images/page-%0*d.png\" media-type=\"image/png\"%s/>\n", pad, n, pad, n, cover)
		fmt.Fprintf(items, "    <item id=\"page-%0*d\" href=\"page-%0*d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", pad, n, pad, n)
		fmt.Fprintf(spine, "    <itemref idref=\"page-%0*d\"/>\n", pad, n)
	}
	nav.WriteString("</ol></nav>\n</body>\n</html>\n")
	if err := addZipFile(zw, "OEBPS/nav.xhtml", nav.Bytes()); err != nil {
		return fmt.Errorf("write nav.xhtml: %w", err)
	}

	opf := &bytes.Buffer{}
	opf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	opf.WriteString("<package version=\"3.0\" unique-identifier=\"pub-id\" xmlns=\"http://www.idpf.org/2007/opf\">\n")
	opf.WriteString("  <metadata xmlns:dc=\"http://purl.org/dc/elements/1.1/\">\n")
	fmt.Fprintf(opf, "    <dc:identifier id=\"pub-id\">%s</dc:identifier>\n", xmlEsc(opt.Identifier))
	fmt.Fprintf(opf, "    <dc:title>%s</dc:title>\n", xmlEsc(opt.Title))
	fmt.Fprintf(opf, "    <dc:language>%s</dc:language>\n", xmlEsc(opt.Language))
	if opt.Author != "" {
		fmt.Fprintf(opf, "    <dc:creator>%s</dc:creator>\n", xmlEsc(opt.Author))
	}
	fmt.Fprintf(opf, "    <meta property=\"dcterms:modified\">%s</meta>\n", opt.Modified.UTC().Format("2006-01-02T15:04:05Z"))
	opf.WriteString("    <meta property=\"rendition:layout\">pre-paginated</meta>\n")
	opf.WriteString("    <meta property=\"rendition:spread\">none</meta>\n")
	opf.WriteString("  </metadata>\n  <manifest>\n")
	opf.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	opf.WriteString("    <item id=\"css\" href=\"styles/epub.css\" media-type=\"text/css\"/>\n")
	opf.Write(items.Bytes())
	opf.WriteString("  </manifest>\n  <spine>\n")
	opf.Write(spine.Bytes())
	opf.WriteString("  </spine>\n</package>\n")
	if err := addZipFile(zw, "OEBPS/content.opf", opf.Bytes()); err != nil {
		return fmt.Errorf("write content.opf: %w", err)
	}
	return nil
}

// addStoredZipFile writes an entry with STORE method (no compression), required for EPUB mimetype.
func addStoredZipFile(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: modified})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func xmlEsc(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
