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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/multierr"

	"goscriptwriter/internal/config"
	"goscriptwriter/internal/domain"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/render"
	"goscriptwriter/internal/script"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Formats understood by WriteFormat and BatchExport.
const (
	FormatPDF  = "pdf"
	FormatPNG  = "png"
	FormatCBZ  = "cbz"
	FormatText = "txt"
	FormatHTML = "html"
	FormatEPUB = "epub"
)

// Formats lists every supported output format.
func Formats() []string { return []string{FormatPDF, FormatPNG, FormatCBZ, FormatEPUB, FormatText, FormatHTML} }

// ContentType returns the MIME type and file extension WriteFormat produces for format.
func ContentType(format string) (mime, ext string) {
	switch format {
	case FormatPDF:
		return "application/pdf", "pdf"
	case FormatPNG:
		return "application/zip", "zip"
	case FormatCBZ:
		return "application/vnd.comicbook+zip", "cbz"
	case FormatEPUB:
		return "application/epub+zip", "epub"
	case FormatText:
		return "text/plain; charset=utf-8", "txt"
	case FormatHTML:
		return "text/html; charset=utf-8", "html"
	default:
		return "application/octet-stream", "bin"
	}
}

// IsPaged reports whether a format needs a rasterized document.
func IsPaged(format string) bool {
	return format == FormatPDF || format == FormatPNG || format == FormatCBZ || format == FormatEPUB
}

// Job bundles everything needed to produce any output format for one script.
type Job struct {
	Scenes        []domain.Scene
	Title         string
	PageFormat    string // A4 | Letter
	PageWidthPx   int
	PageHeightPx  int // 0 derives from PageFormat
	MarginPx      int
	IncludeImages bool
	Surface       render.SurfaceOptions // Width/IncludeImages are filled in from the job
}

// JobFromConfig builds a Job for scenes from the export section of the app config.
func JobFromConfig(scenes []domain.Scene, cfg config.ExportConfig) (Job, error) {
	provider, err := render.NewProvider(cfg.FontPath)
	if err != nil {
		return Job{}, fmt.Errorf("load font: %w", err)
	}
	return Job{
		Scenes:        scenes,
		PageFormat:    cfg.PageFormat,
		PageWidthPx:   cfg.PageWidthPx,
		PageHeightPx:  cfg.PageHeightPx,
		MarginPx:      cfg.MarginPx,
		IncludeImages: cfg.IncludeImages,
		Surface:       render.SurfaceOptions{Provider: provider},
	}, nil
}

// BatchOptions controls a preset run.
//
// Path semantics: OutDir is created if missing; single-file outputs are
// named <slug(title)>.<ext>, PNG pages go to <slug(title)>-png/.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // empty means preset defaults
	OutDir  string
}

// ResolveTitle picks the job title: explicit, first scene header, then fallback.
func (j Job) ResolveTitle(fallback string) string {
	if strings.TrimSpace(j.Title) != "" {
		return strings.TrimSpace(j.Title)
	}
	if t := script.Title(j.Scenes); t != "" {
		return t
	}
	return fallback
}

// FileStem is the slugged title used for output names.
func FileStem(title string) string {
	if s := slug.Make(title); s != "" {
		return s
	}
	return "script"
}

// Document rasterizes and paginates the job's scenes.
func (j Job) Document(ctx context.Context, exp *Exporter) (*domain.Document, error) {
	w, h, err := j.pageSize()
	if err != nil {
		return nil, err
	}
	so := j.Surface
	so.Width = w
	if so.Margin == 0 {
		so.Margin = j.MarginPx
	}
	surface := render.NewSceneSurface(j.Scenes, so)
	if exp == nil {
		exp = NewExporter(nil)
	}
	return exp.Export(ctx, surface, ExportOptions{
		PageWidth:     w,
		PageHeight:    h,
		IncludeImages: j.IncludeImages,
		Title:         j.ResolveTitle("Generated Script"),
	})
}

func (j Job) pageSize() (int, int, error) {
	w, h, err := PageSize(j.PageFormat, j.PageWidthPx)
	if err != nil {
		return 0, 0, err
	}
	if j.PageHeightPx != 0 {
		h = j.PageHeightPx
	}
	return w, h, nil
}

// WriteFormat produces a single-file format into w. Paged formats reuse doc
// when it is non-nil. PNG pages are written as a zip archive.
func WriteFormat(ctx context.Context, w io.Writer, format string, j Job, doc *domain.Document, exp *Exporter) (*domain.Document, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	var err error
	if IsPaged(format) && doc == nil {
		if doc, err = j.Document(ctx, exp); err != nil {
			return nil, err
		}
	}
	switch format {
	case FormatPDF:
		err = WritePDF(w, doc, PDFOptions{PageFormat: j.PageFormat})
	case FormatCBZ:
		err = WriteCBZ(w, doc, CBZOptions{Writer: "GoScriptWriter"})
	case FormatEPUB:
		err = WriteEPUB(w, doc, EPUBOptions{Title: j.ResolveTitle("Generated Script")})
	case FormatText:
		err = WriteText(w, j.Scenes)
	case FormatHTML:
		err = WriteHTML(w, j.Scenes, HTMLOptions{Title: j.ResolveTitle("Generated Script"), IncludeImages: j.IncludeImages})
	case FormatPNG:
		err = WritePNGZip(w, doc)
	default:
		err = fmt.Errorf("unknown format: %s", format)
	}
	return doc, err
}

// BatchExport runs exports according to the given preset and returns the
// written paths. The paged document is rendered once and shared by all
// paged formats.
func BatchExport(ctx context.Context, j Job, opt BatchOptions) ([]string, error) {
	l := applog.WithOperation(applog.WithComponent("export"), "batch")
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("unknown preset: %q", opt.Preset)
	}
	outDir := opt.OutDir
	if outDir == "" {
		outDir = string(opt.Preset)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	stem := FileStem(j.ResolveTitle("Generated Script"))
	exp := NewExporter(nil)

	var doc *domain.Document
	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if f == FormatPNG {
			if doc == nil {
				var err error
				if doc, err = j.Document(ctx, exp); err != nil {
					return written, fmt.Errorf("png: %w", err)
				}
			}
			paths, err := WritePNGPages(filepath.Join(outDir, stem+"-png"), doc)
			written = append(written, paths...)
			if err != nil {
				return written, fmt.Errorf("png: %w", err)
			}
			continue
		}
		var buf bytes.Buffer
		var err error
		doc, err = WriteFormat(ctx, &buf, f, j, doc, exp)
		if err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		path := filepath.Join(outDir, stem+"."+f)
		if err := writeFile(path, buf.Bytes()); err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, path)
	}
	l.Info("batch export finished", slog.String("preset", string(opt.Preset)), slog.Int("files", len(written)))
	return written, nil
}

func writeFile(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	_, err = f.Write(data)
	return err
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{FormatPNG, FormatHTML, FormatCBZ}
	case PresetPrint:
		return []string{FormatPDF, FormatText}
	default:
		return nil
	}
}
