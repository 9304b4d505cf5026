/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes generation, parsing, export and history over HTTP/JSON.
package server

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gojsonschema "github.com/xeipuuv/gojsonschema"

	"goscriptwriter/internal/config"
	"goscriptwriter/internal/export"
	"goscriptwriter/internal/generator"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/render"
	"goscriptwriter/internal/script"
	"goscriptwriter/internal/storage"
	"goscriptwriter/internal/version"
)

//go:embed schema/export_request.json
var exportSchemaJSON []byte

const maxBodyBytes = 32 << 20

// Options wires the server to its collaborators. Store may be nil, in which
// case the history routes are not registered.
type Options struct {
	Generator *generator.Generator
	Store     *storage.Store
	Parser    config.ParserConfig
	Export    config.ExportConfig
	Exporter  *export.Exporter
}

type Server struct {
	opt    Options
	schema *gojsonschema.Schema
}

// New validates options and compiles the embedded request schema.
func New(opt Options) (*Server, error) {
	if opt.Generator == nil {
		return nil, errors.New("generator required")
	}
	if opt.Exporter == nil {
		opt.Exporter = export.NewExporter(nil)
	}
	if opt.Parser.Markers == nil {
		opt.Parser.Markers = config.DefaultMarkers
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(exportSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile export schema: %w", err)
	}
	return &Server{opt: opt, schema: schema}, nil
}

// Routes returns the HTTP handler with request logging applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	})
	mux.HandleFunc("POST /api/generate-story", s.handleStory)
	mux.HandleFunc("POST /api/generate-script", s.handleScript)
	mux.HandleFunc("POST /api/parse", s.handleParse)
	mux.HandleFunc("POST /api/export", s.handleExport)
	if s.opt.Store != nil {
		mux.HandleFunc("GET /api/history", s.handleHistoryList)
		mux.HandleFunc("GET /api/history/{id}", s.handleHistoryGet)
	}
	return logMiddleware(mux)
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	applog.WithComponent("server").Info("listening", slog.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type storyReq struct {
	Prompt string `json:"prompt"`
}

type scriptReq struct {
	Storyline string `json:"storyline"`
}

type parseReq struct {
	Script  string   `json:"script"`
	Markers []string `json:"markers,omitempty"`
}

type exportReq struct {
	Script        string   `json:"script"`
	Title         string   `json:"title,omitempty"`
	Markers       []string `json:"markers,omitempty"`
	Format        string   `json:"format"`
	IncludeImages *bool    `json:"include_images,omitempty"`
	PageFormat    string   `json:"page_format,omitempty"`
	PageWidthPx   *int     `json:"page_width_px,omitempty"`
	PageHeightPx  *int     `json:"page_height_px,omitempty"`
}

type imageJSON struct {
	Position int    `json:"position"`
	MimeType string `json:"mime_type"`
	Alt      string `json:"alt,omitempty"`
	Data     []byte `json:"data"`
}

type sceneJSON struct {
	Index  int        `json:"index"`
	Header string     `json:"header"`
	Body   string     `json:"body"`
	Image  *imageJSON `json:"image,omitempty"`
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	var req storyReq
	if !decodeJSON(w, r, &req) {
		return
	}
	story, err := s.opt.Generator.Story(r.Context(), req.Prompt)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	resp := map[string]any{"story": story}
	if id, ok := s.remember(r.Context(), storage.KindStory, req.Prompt, story); ok {
		resp["id"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	var req scriptReq
	if !decodeJSON(w, r, &req) {
		return
	}
	text, err := s.opt.Generator.Script(r.Context(), req.Storyline)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	resp := map[string]any{"script": text}
	if id, ok := s.remember(r.Context(), storage.KindScript, req.Storyline, text); ok {
		resp["id"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseReq
	if !decodeJSON(w, r, &req) {
		return
	}
	scenes := s.parser(req.Markers).Parse(req.Script)
	out := make([]sceneJSON, 0, len(scenes))
	for _, sc := range scenes {
		js := sceneJSON{Index: sc.Index, Header: sc.Header, Body: sc.Body}
		if sc.Image != nil {
			js.Image = &imageJSON{Position: sc.Image.Position, MimeType: sc.Image.MimeType, Alt: sc.Image.Alt, Data: sc.Image.Data}
		}
		out = append(out, js)
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenes": out})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "request does not match schema", "details": msgs})
		return
	}
	var req exportReq
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	scenes := s.parser(req.Markers).Parse(req.Script)

	cfg := s.opt.Export
	if req.PageFormat != "" {
		cfg.PageFormat = req.PageFormat
	}
	if req.PageWidthPx != nil {
		cfg.PageWidthPx = *req.PageWidthPx
	}
	if req.PageHeightPx != nil {
		cfg.PageHeightPx = *req.PageHeightPx
	}
	if (req.PageWidthPx != nil && cfg.PageWidthPx <= 0) || (req.PageHeightPx != nil && cfg.PageHeightPx <= 0) {
		writeExportError(w, fmt.Errorf("%w: page %dx%d", export.ErrInvalidDimensions, cfg.PageWidthPx, cfg.PageHeightPx))
		return
	}
	if req.IncludeImages != nil {
		cfg.IncludeImages = *req.IncludeImages
	}
	job, err := export.JobFromConfig(scenes, cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	job.Title = req.Title
	if job.Title == "" {
		job.Title = script.Title(scenes)
	}

	var buf bytes.Buffer
	if _, err := export.WriteFormat(r.Context(), &buf, req.Format, job, nil, s.opt.Exporter); err != nil {
		writeExportError(w, err)
		return
	}
	mime, ext := export.ContentType(req.Format)
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileStem(job.Title)+"."+ext))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	entries, err := s.opt.Store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []storage.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}
	e, err := s.opt.Store.Get(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, e)
	}
}

func (s *Server) parser(markers []string) *script.Parser {
	if len(markers) == 0 {
		markers = s.opt.Parser.Markers
	}
	return script.NewParser(markers, script.SegmentOptions{KeepPreamble: s.opt.Parser.KeepPreamble})
}

// remember stores generated text when history is enabled. Failures are logged only.
func (s *Server) remember(ctx context.Context, kind storage.Kind, prompt, text string) (int64, bool) {
	if s.opt.Store == nil {
		return 0, false
	}
	id, err := s.opt.Store.Save(ctx, storage.Entry{Kind: kind, Prompt: prompt, Text: text})
	if err != nil {
		applog.WithOperation(applog.WithComponent("server"), "history").ErrorContext(ctx, "save failed", slog.Any("err", err))
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return false
	}
	return true
}

func writeGenerateError(w http.ResponseWriter, err error) {
	if errors.Is(err, generator.ErrEmptyInput) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeError(w, http.StatusBadGateway, err)
}

// writeExportError maps export failures to a single user-facing notice.
func writeExportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, script.ErrEmptyContent):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"notice": "No text content to export."})
	case errors.Is(err, export.ErrInvalidDimensions), errors.Is(err, render.ErrRenderUnavailable):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"notice": "Export failed: " + err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// logMiddleware tags each request with an id (X-Request-ID or a random one)
// and logs method, path, status and duration.
func logMiddleware(next http.Handler) http.Handler {
	l := applog.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		ctx := applog.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		l.InfoContext(ctx, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.bytes),
			slog.Duration("took", time.Since(start)),
		)
	})
}
