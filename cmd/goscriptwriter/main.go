/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"goscriptwriter/internal/config"
	"goscriptwriter/internal/crash"
	"goscriptwriter/internal/export"
	applog "goscriptwriter/internal/log"
	"goscriptwriter/internal/script"
	"goscriptwriter/internal/version"
)

// appEnv is the per-run state prepared by the Before hook.
type appEnv struct {
	Cfg     config.AppConfig
	APIKey  string
	CfgPath string
}

type envKey struct{}

func envFrom(ctx context.Context) *appEnv {
	if e, ok := ctx.Value(envKey{}).(*appEnv); ok {
		return e
	}
	cfg := config.Defaults()
	return &appEnv{Cfg: cfg}
}

// initializeAppContext loads configuration and sets up logging after the
// command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	env := &appEnv{}
	var err error
	if path := cmd.String("config"); path != "" {
		env.CfgPath = path
		env.Cfg, env.APIKey, err = config.LoadFrom(path)
	} else {
		env.CfgPath, _ = config.ConfigPath()
		env.Cfg, env.APIKey, err = config.Load()
	}
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	opts := applog.Options{
		Level:     env.Cfg.Logging.Level,
		Format:    env.Cfg.Logging.Format,
		AddSource: env.Cfg.Logging.Source,
		File:      env.Cfg.Logging.File,
	}
	if cmd.Bool("debug") {
		opts.Level = "debug"
	}
	applog.Init(opts)
	applog.WithComponent("cli").Debug("program started",
		slog.Any("args", os.Args),
		slog.String("ver", version.String()),
		slog.String("runtime", runtime.Version()),
	)
	return context.WithValue(ctx, envKey{}, env), nil
}

func crashDir() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "crash")
}

func main() {
	defer crash.Recover(crashDir())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            "goscriptwriter",
		Usage:           "generate, parse and export screenplay scripts",
		Version:         version.String() + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:   "version",
				Usage:  "Prints the program version",
				Action: runVersion,
			},
			{
				Name:      "parse",
				Usage:     "Splits a script into scenes",
				ArgsUsage: "FILE",
				Action:    runParse,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print scenes as JSON"},
					&cli.StringSliceFlag{Name: "marker", Aliases: []string{"m"}, Usage: "scene `MARKER` (repeatable, prefix re: for a regex); replaces configured markers"},
				},
			},
			{
				Name:      "export",
				Usage:     "Exports a script to a single format",
				ArgsUsage: "FILE",
				Action:    runExport,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Value: export.FormatPDF, Usage: "output `FORMAT` (" + strings.Join(export.Formats(), ", ") + ")"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `PATH` (directory for png)"},
					&cli.BoolFlag{Name: "no-images", Usage: "leave embedded images out of the rendering"},
					&cli.StringFlag{Name: "page-format", Usage: "paper `FORMAT` (A4 or Letter)"},
					&cli.IntFlag{Name: "width", Usage: "page width in `PIXELS`"},
					&cli.StringFlag{Name: "title", Usage: "document `TITLE` (defaults to the first scene header)"},
					&cli.StringSliceFlag{Name: "marker", Aliases: []string{"m"}, Usage: "scene `MARKER` (repeatable)"},
				},
			},
			{
				Name:      "batch",
				Usage:     "Exports a script with a preset (web or print)",
				ArgsUsage: "FILE",
				Action:    runBatch,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "preset", Value: "", Usage: "`PRESET` name: web or print"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `DIR`"},
					&cli.BoolFlag{Name: "no-images", Usage: "leave embedded images out of the rendering"},
					&cli.StringFlag{Name: "page-format", Usage: "paper `FORMAT` (A4 or Letter)"},
					&cli.StringFlag{Name: "title", Usage: "document `TITLE`"},
					&cli.StringSliceFlag{Name: "marker", Aliases: []string{"m"}, Usage: "scene `MARKER` (repeatable)"},
				},
			},
			{
				Name:      "story",
				Usage:     "Generates a short story from a prompt",
				ArgsUsage: "PROMPT",
				Action:    runStory,
			},
			{
				Name:      "script",
				Usage:     "Converts a story into a screenplay",
				ArgsUsage: "FILE",
				Action:    runScript,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write the script to `FILE` instead of STDOUT"},
				},
			},
			{
				Name:      "history",
				Usage:     "Lists generated texts or prints one by id",
				ArgsUsage: "[ID]",
				Action:    runHistory,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "list at most `N` entries"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Runs the HTTP API",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen `ADDRESS` (default from config)"},
				},
			},
			{
				Name:      "setkey",
				Usage:     "Stores the LLM API key in the OS keychain",
				ArgsUsage: "KEY",
				Action:    runSetKey,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "delete", Usage: "remove the stored key instead"},
				},
			},
			{
				Name:      "dumpconfig",
				Usage:     "Dumps either default or actual configuration (YAML)",
				ArgsUsage: "DESTINATION",
				Action:    runDumpConfig,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default configuration"},
				},
			},
		},
	}

	err := app.Run(ctx, os.Args)
	stop()
	if err != nil {
		if errors.Is(err, script.ErrEmptyContent) {
			fmt.Fprintln(os.Stderr, "No text content to export.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		applog.WithComponent("cli").Error("program ended with error", slog.Any("err", err))
		os.Exit(1)
	}
}
