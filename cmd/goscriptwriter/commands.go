/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"goscriptwriter/internal/config"
	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/export"
	"goscriptwriter/internal/generator"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/script"
	"goscriptwriter/internal/server"
	"goscriptwriter/internal/storage"
	"goscriptwriter/internal/version"
)

func runVersion(_ context.Context, _ *cli.Command) error {
	fmt.Println("GoScriptWriter")
	fmt.Println(version.String())
	return nil
}

// readInput reads FILE, or STDIN when name is "-".
func readInput(name string, stdin io.Reader) (string, error) {
	if name == "" {
		return "", errors.New("input FILE is required (use - for STDIN)")
	}
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}

func parserFor(cfg config.AppConfig, override []string) *script.Parser {
	markers := cfg.Parser.Markers
	if len(override) > 0 {
		markers = override
	}
	return script.NewParser(markers, script.SegmentOptions{KeepPreamble: cfg.Parser.KeepPreamble})
}

func runParse(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	raw, err := readInput(cmd.Args().First(), os.Stdin)
	if err != nil {
		return err
	}
	scenes := parserFor(env.Cfg, cmd.StringSlice("marker")).Parse(raw)
	return printScenes(os.Stdout, scenes, cmd.Bool("json"))
}

type sceneOut struct {
	Index    int    `json:"index"`
	Header   string `json:"header"`
	Body     string `json:"body"`
	MimeType string `json:"image_mime,omitempty"`
	Image    []byte `json:"image,omitempty"`
}

func printScenes(w io.Writer, scenes []domain.Scene, asJSON bool) error {
	if asJSON {
		out := make([]sceneOut, 0, len(scenes))
		for _, sc := range scenes {
			so := sceneOut{Index: sc.Index, Header: sc.Header, Body: sc.Body}
			if sc.Image != nil {
				so.MimeType, so.Image = sc.Image.MimeType, sc.Image.Data
			}
			out = append(out, so)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, sc := range scenes {
		header := sc.Header
		if header == "" {
			header = "(no header)"
		}
		if _, err := fmt.Fprintf(w, "Scene %d: %s\n", sc.Index+1, header); err != nil {
			return err
		}
		if sc.Image != nil {
			fmt.Fprintf(w, "  [image %s, %d bytes]\n", sc.Image.MimeType, len(sc.Image.Data))
		}
		for _, ln := range strings.Split(sc.Body, "\n") {
			fmt.Fprintf(w, "  %s\n", ln)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// prepareJob parses FILE and builds an export job from config plus flags.
func prepareJob(ctx context.Context, cmd *cli.Command) (export.Job, error) {
	env := envFrom(ctx)
	raw, err := readInput(cmd.Args().First(), os.Stdin)
	if err != nil {
		return export.Job{}, err
	}
	scenes := parserFor(env.Cfg, cmd.StringSlice("marker")).Parse(raw)
	cfg := env.Cfg.Export
	if v := cmd.String("page-format"); v != "" {
		cfg.PageFormat = v
	}
	if cmd.IsSet("width") {
		cfg.PageWidthPx = int(cmd.Int("width"))
		if cfg.PageWidthPx <= 0 {
			return export.Job{}, fmt.Errorf("%w: width %d", export.ErrInvalidDimensions, cfg.PageWidthPx)
		}
	}
	if cmd.Bool("no-images") {
		cfg.IncludeImages = false
	}
	job, err := export.JobFromConfig(scenes, cfg)
	if err != nil {
		return export.Job{}, err
	}
	job.Title = cmd.String("title")
	if job.Title == "" {
		job.Title = script.Title(scenes)
	}
	if job.Title == "" {
		job.Title = env.Cfg.General.Title
	}
	return job, nil
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	l := applog.WithOperation(applog.WithComponent("cli"), "export")
	job, err := prepareJob(ctx, cmd)
	if err != nil {
		return err
	}
	format := strings.ToLower(cmd.String("to"))
	stem := export.FileStem(job.ResolveTitle("Generated Script"))
	out := cmd.String("out")

	if format == export.FormatPNG {
		if out == "" {
			out = stem + "-png"
		}
		doc, err := job.Document(ctx, nil)
		if err != nil {
			return err
		}
		paths, err := export.WritePNGPages(out, doc)
		if err != nil {
			return err
		}
		l.Info("pages written", slog.String("dir", out), slog.Int("pages", len(paths)))
		fmt.Printf("Wrote %d page(s) to %s\n", len(paths), out)
		return nil
	}

	if out == "" {
		_, ext := export.ContentType(format)
		out = stem + "." + ext
	}
	var buf bytes.Buffer
	if _, err := export.WriteFormat(ctx, &buf, format, job, nil, nil); err != nil {
		return err
	}
	if err := writeOutput(out, buf.Bytes()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	job, err := prepareJob(ctx, cmd)
	if err != nil {
		return err
	}
	preset := cmd.String("preset")
	if preset == "" {
		preset = env.Cfg.Export.Preset
	}
	outDir := cmd.String("out")
	if outDir == "" {
		outDir = env.Cfg.Export.OutDir
	}
	paths, err := export.BatchExport(ctx, job, export.BatchOptions{Preset: export.PresetName(strings.ToLower(preset)), OutDir: outDir})
	for _, p := range paths {
		fmt.Println(p)
	}
	return err
}

func newGenerator(env *appEnv) (*generator.Generator, error) {
	llm, err := generator.NewLLM(generator.SettingsFromConfig(env.Cfg.LLM, env.APIKey))
	if err != nil {
		return nil, err
	}
	return generator.New(llm), nil
}

// openStore returns nil when history is disabled.
func openStore(ctx context.Context, cfg config.StorageConfig) (*storage.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "none" || driver == "off" {
		return nil, nil
	}
	dsn := cfg.DSN
	if dsn == "" && (driver == "" || driver == "sqlite") {
		dsn = config.DefaultStoreDSN()
	}
	st, err := storage.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	st.KeepLast = cfg.KeepLast
	return st, nil
}

// remember saves generated text; history problems never fail a generation.
func remember(ctx context.Context, env *appEnv, kind storage.Kind, prompt, text string) {
	l := applog.WithOperation(applog.WithComponent("cli"), "history")
	st, err := openStore(ctx, env.Cfg.Storage)
	if err != nil {
		l.Warn("history unavailable", slog.Any("err", err))
		return
	}
	if st == nil {
		return
	}
	defer st.Close()
	if _, err := st.Save(ctx, storage.Entry{Kind: kind, Prompt: prompt, Text: text}); err != nil {
		l.Warn("history save failed", slog.Any("err", err))
	}
}

func runStory(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	prompt := strings.Join(cmd.Args().Slice(), " ")
	gen, err := newGenerator(env)
	if err != nil {
		return err
	}
	story, err := gen.Story(ctx, prompt)
	if err != nil {
		return err
	}
	remember(ctx, env, storage.KindStory, prompt, story)
	fmt.Println(story)
	return nil
}

func runScript(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	storyline, err := readInput(cmd.Args().First(), os.Stdin)
	if err != nil {
		return err
	}
	gen, err := newGenerator(env)
	if err != nil {
		return err
	}
	text, err := gen.Script(ctx, storyline)
	if err != nil {
		return err
	}
	remember(ctx, env, storage.KindScript, storyline, text)
	if out := cmd.String("out"); out != "" {
		if err := writeOutput(out, []byte(text+"\n")); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	}
	fmt.Println(text)
	return nil
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	st, err := openStore(ctx, env.Cfg.Storage)
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("history is disabled (storage.driver: none)")
	}
	defer st.Close()

	if arg := cmd.Args().First(); arg != "" {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", arg)
		}
		e, err := st.Get(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s %s\n\n%s\n", e.ID, e.Kind, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Text)
		return nil
	}
	entries, err := st.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("#%-5d %-6s %s  %s\n", e.ID, e.Kind, e.CreatedAt.Local().Format("2006-01-02 15:04"), preview(e.Prompt, 60))
	}
	return nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	gen, err := newGenerator(env)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, env.Cfg.Storage)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}
	srv, err := server.New(server.Options{
		Generator: gen,
		Store:     st,
		Parser:    env.Cfg.Parser,
		Export:    env.Cfg.Export,
	})
	if err != nil {
		return err
	}
	addr := cmd.String("addr")
	if addr == "" {
		addr = env.Cfg.Server.Addr
	}
	return server.ListenAndServe(ctx, addr, srv.Routes())
}

func runSetKey(ctx context.Context, cmd *cli.Command) error {
	env := envFrom(ctx)
	if cmd.Bool("delete") {
		if err := config.DeleteAPIKey(); err != nil {
			return err
		}
		fmt.Println("API key removed from the keychain")
		return nil
	}
	key := strings.TrimSpace(cmd.Args().First())
	if key == "" {
		return errors.New("KEY is required")
	}
	if env.CfgPath == "" {
		return errors.New("no configuration path available")
	}
	if err := config.SaveTo(env.CfgPath, env.Cfg, key); err != nil {
		return err
	}
	fmt.Printf("API key stored; configuration saved to %s\n", env.CfgPath)
	return nil
}

func runDumpConfig(ctx context.Context, cmd *cli.Command) (err error) {
	env := envFrom(ctx)
	cfg := env.Cfg
	if cmd.Bool("default") {
		cfg = config.Defaults()
	}
	data, err := config.Dump(cfg)
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}
	if !cmd.Bool("default") {
		l := applog.WithOperation(applog.WithComponent("cli"), "dumpconfig")
		for _, key := range overridableKeys {
			if envName, ok := config.EnvOverrideFor(key); ok {
				l.Info("value taken from environment", slog.String("key", key), slog.String("env", envName))
			}
		}
	}
	if fname := cmd.Args().First(); fname != "" {
		return writeOutput(fname, data)
	}
	_, err = os.Stdout.Write(data)
	return err
}

var overridableKeys = []string{
	"llm.provider", "llm.model", "llm.base_url", "llm.timeout_ms",
	"parser.markers", "export.page_format", "export.include_images",
	"storage.driver", "storage.dsn", "server.addr",
	"logging.level", "logging.format", "logging.source", "logging.file",
}

func writeOutput(path string, data []byte) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create destination file '%s': %w", path, err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	_, err = f.Write(data)
	return err
}
