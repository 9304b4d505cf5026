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
	"strings"
	"time"

	"goscriptwriter/internal/config"
)

// Prompt is a single chat completion request.
type Prompt struct {
	System string
	User   string
}

// LLM abstracts the text-generation backend so it can be swapped or mocked.
type LLM interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Settings configures a concrete LLM.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// GeminiOpenAIBaseURL is Google's OpenAI-compatible endpoint.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ErrUnknownProvider is returned for unsupported provider names.
var ErrUnknownProvider = errors.New("unknown llm provider")

// SettingsFromConfig maps the llm config section plus the resolved API key.
func SettingsFromConfig(c config.LLMConfig, apiKey string) Settings {
	return Settings{
		Provider: c.Provider,
		Model:    c.Model,
		APIKey:   apiKey,
		BaseURL:  c.BaseURL,
		Timeout:  time.Duration(c.TimeoutMs) * time.Millisecond,
	}
}

// NewLLM builds the LLM for s.Provider: openai, deepseek, gemini or mock.
func NewLLM(s Settings) (LLM, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", "mock":
		return &MockLLM{}, nil
	case "openai":
		return NewOpenAILLM(s)
	case "deepseek":
		if s.BaseURL == "" {
			return nil, errors.New("deepseek requires llm.base_url")
		}
		return NewOpenAILLM(s)
	case "gemini":
		if s.BaseURL == "" {
			s.BaseURL = GeminiOpenAIBaseURL
		}
		if s.Model == "" {
			s.Model = "gemini-2.0-flash"
		}
		return NewOpenAILLM(s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}
}
