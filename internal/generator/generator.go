/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	applog "goscriptwriter/internal/log"
)

// ErrEmptyInput is returned when the prompt or storyline is blank.
var ErrEmptyInput = errors.New("input is empty")

const (
	storyPrefix  = "Write a creative short story based on the following idea:\n\n"
	scriptPrefix = "Convert the following story into a screenplay script format:\n\n"
)

// Generator produces stories and screenplay scripts through an LLM.
type Generator struct {
	LLM LLM
}

func New(llm LLM) *Generator { return &Generator{LLM: llm} }

// Story writes a short story from an idea.
func (g *Generator) Story(ctx context.Context, prompt string) (string, error) {
	return g.run(ctx, "story", storyPrefix, prompt)
}

// Script converts a story into screenplay format.
func (g *Generator) Script(ctx context.Context, storyline string) (string, error) {
	return g.run(ctx, "script", scriptPrefix, storyline)
}

func (g *Generator) run(ctx context.Context, op, prefix, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}
	l := applog.WithOperation(applog.WithComponent("generator"), op)
	start := time.Now()
	out, err := g.LLM.Complete(ctx, Prompt{User: prefix + input})
	if err != nil {
		l.ErrorContext(ctx, "generation failed", slog.Any("err", err), slog.Duration("took", time.Since(start)))
		return "", fmt.Errorf("generate %s: %w", op, err)
	}
	l.InfoContext(ctx, "generated", slog.Int("input_chars", len(input)), slog.Int("output_chars", len(out)),
		slog.Duration("took", time.Since(start)))
	return out, nil
}
