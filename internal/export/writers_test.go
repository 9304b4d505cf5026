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
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/render"
	"goscriptwriter/internal/script"
	"goscriptwriter/internal/textlayout"
)

func testDoc(t *testing.T, n int) *domain.Document {
	t.Helper()
	pages, err := Paginate(context.Background(), twoTone(120, 170*n), 120, 170)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(pages) != n {
		t.Fatalf("expected %d pages, got %d", n, len(pages))
	}
	return &domain.Document{Title: "Night & Day", Pages: pages}
}

func pngPayload(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sampleScenes(t *testing.T) []domain.Scene {
	return []domain.Scene{
		{Index: 0, Header: "INT. ROOM - DAY", Body: "Hello **world**\n<script>alert(1)</script>", Image: &domain.ImageRef{Data: pngPayload(t), MimeType: "image/png", Alt: "room"}},
		{Index: 1, Header: "EXT. STREET - NIGHT", Body: "Goodbye"},
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, testDoc(t, 2), PDFOptions{PageFormat: "A4"}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-")) || !bytes.Contains(out, []byte("%%EOF")) {
		t.Fatalf("output is not a PDF")
	}
	pages := bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
	if pages != 2 {
		t.Fatalf("expected 2 PDF pages, found %d", pages)
	}
	if err := WritePDF(io.Discard, &domain.Document{}, PDFOptions{}); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func TestWriteCBZ(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCBZ(&buf, testDoc(t, 2), CBZOptions{Writer: "Tester"}); err != nil {
		t.Fatalf("WriteCBZ: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	var names []string
	var manifest string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name == "ComicInfo.xml" {
			rc, _ := f.Open()
			b, _ := io.ReadAll(rc)
			_ = rc.Close()
			manifest = string(b)
		}
	}
	if strings.Join(names, ",") != "1.png,2.png,ComicInfo.xml" {
		t.Fatalf("unexpected entries: %v", names)
	}
	for _, want := range []string{"<PageCount>2</PageCount>", "<Title>Night &amp; Day</Title>", "<Writer>Tester</Writer>"} {
		if !strings.Contains(manifest, want) {
			t.Fatalf("manifest missing %q:\n%s", want, manifest)
		}
	}
}

func TestWritePNGPages(t *testing.T) {
	dir := t.TempDir()
	paths, err := WritePNGPages(dir, testDoc(t, 2))
	if err != nil {
		t.Fatalf("WritePNGPages: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "page-1.png" || filepath.Base(paths[1]) != "page-2.png" {
		t.Fatalf("unexpected paths: %v", paths)
	}
	f, err := os.Open(paths[1])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil || cfg.Width != 120 || cfg.Height != 170 {
		t.Fatalf("page png %+v, %v", cfg, err)
	}
}

func TestWriteEPUB(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEPUB(&buf, testDoc(t, 2), EPUBOptions{Author: "A & B"}); err != nil {
		t.Fatalf("WriteEPUB: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if zr.File[0].Name != "mimetype" || zr.File[0].Method != zip.Store {
		t.Fatalf("mimetype must be the first stored entry")
	}
	files := map[string]string{}
	for _, f := range zr.File {
		rc, _ := f.Open()
		b, _ := io.ReadAll(rc)
		_ = rc.Close()
		files[f.Name] = string(b)
	}
	for _, name := range []string{"META-INF/container.xml", "OEBPS/nav.xhtml", "OEBPS/images/page-1.png", "OEBPS/page-2.xhtml"} {
		if _, ok := files[name]; !ok {
			t.Fatalf("missing %s", name)
		}
	}
	opf := files["OEBPS/content.opf"]
	for _, want := range []string{"<dc:title>Night &amp; Day</dc:title>", "<dc:creator>A &amp; B</dc:creator>", `<itemref idref="page-2"/>`, "pre-paginated"} {
		if !strings.Contains(opf, want) {
			t.Fatalf("content.opf missing %q:\n%s", want, opf)
		}
	}
	if err := WriteEPUB(io.Discard, nil, EPUBOptions{}); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func TestWritePNGZip(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNGZip(&buf, testDoc(t, 3)); err != nil {
		t.Fatalf("WritePNGZip: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(zr.File) != 3 || zr.File[0].Name != "page-1.png" || zr.File[2].Name != "page-3.png" {
		t.Fatalf("unexpected entries: %d", len(zr.File))
	}
	if err := WritePNGZip(io.Discard, &domain.Document{}); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleScenes(t)); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "Hello world\n") || !strings.HasSuffix(got, "\n\nGoodbye\n") {
		t.Fatalf("unexpected text: %q", got)
	}
	if err := WriteText(io.Discard, []domain.Scene{{Header: "INT. A"}}); !errors.Is(err, script.ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleScenes(t), HTMLOptions{Title: "Night & Day", IncludeImages: true}); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if got := doc.Find("title").Text(); got != "Night & Day" {
		t.Fatalf("title = %q", got)
	}
	if n := doc.Find("section.scene").Length(); n != 2 {
		t.Fatalf("expected 2 scene sections, got %d", n)
	}
	if got := doc.Find("#scene-2 h2").Text(); got != "EXT. STREET - NIGHT" {
		t.Fatalf("scene 2 header = %q", got)
	}
	if got := doc.Find("#scene-1 strong").Text(); got != "world" {
		t.Fatalf("markdown emphasis not rendered: %q", got)
	}
	if doc.Find("script").Length() != 0 {
		t.Fatalf("raw html from scene body must not be passed through")
	}
	src, _ := doc.Find("#scene-1 img").Attr("src")
	if !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Fatalf("image src = %q", src)
	}
	if alt, _ := doc.Find("#scene-1 img").Attr("alt"); alt != "room" {
		t.Fatalf("image alt = %q", alt)
	}

	buf.Reset()
	if err := WriteHTML(&buf, sampleScenes(t), HTMLOptions{}); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	doc, _ = goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if doc.Find("img").Length() != 0 {
		t.Fatalf("images rendered although disabled")
	}
}

func TestBatchExportPresets(t *testing.T) {
	job := Job{
		Scenes:        sampleScenes(t),
		PageFormat:    "A4",
		PageWidthPx:   200,
		MarginPx:      8,
		IncludeImages: true,
		Surface:       render.SurfaceOptions{Provider: textlayout.BasicProvider{}},
	}
	stem := FileStem(job.ResolveTitle(""))
	if stem != "int-room-day" {
		t.Fatalf("stem = %q", stem)
	}

	webDir := t.TempDir()
	written, err := BatchExport(context.Background(), job, BatchOptions{Preset: PresetWeb, OutDir: webDir})
	if err != nil {
		t.Fatalf("web preset: %v", err)
	}
	for _, want := range []string{
		filepath.Join(webDir, stem+"-png", "page-1.png"),
		filepath.Join(webDir, stem+".html"),
		filepath.Join(webDir, stem+".cbz"),
	} {
		if _, err := os.Stat(want); err != nil {
			t.Fatalf("missing %s (written %v)", want, written)
		}
	}

	printDir := t.TempDir()
	if _, err := BatchExport(context.Background(), job, BatchOptions{Preset: PresetPrint, OutDir: printDir}); err != nil {
		t.Fatalf("print preset: %v", err)
	}
	for _, ext := range []string{".pdf", ".txt"} {
		if _, err := os.Stat(filepath.Join(printDir, stem+ext)); err != nil {
			t.Fatalf("missing %s output: %v", ext, err)
		}
	}

	if _, err := BatchExport(context.Background(), job, BatchOptions{Preset: "nope", OutDir: t.TempDir()}); err == nil {
		t.Fatalf("expected unknown preset error")
	}
	if FileStem("") != "script" {
		t.Fatalf("empty title should fall back to script")
	}
}
