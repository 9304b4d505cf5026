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
	"fmt"
	"strings"
	"sync"
)

// MockLLM returns canned text and records prompts. With no Responses it
// produces a deterministic story or a small two-scene screenplay.
type MockLLM struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Prompts   []Prompt
}

func (m *MockLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		out := m.Responses[0]
		m.Responses = m.Responses[1:]
		return out, nil
	}
	idea := lastParagraph(prompt.User)
	if strings.HasPrefix(prompt.User, scriptPrefix) {
		return fmt.Sprintf("FADE IN:\n\nINT. STUDY - NIGHT\nA writer stares at a blank page.\n\n%s\n\nEXT. CITY STREET - DAWN\nThe story walks out into the light.\n\nFADE OUT.", idea), nil
	}
	return fmt.Sprintf("Once upon a time, %s\n\nAnd that was only the beginning.", idea), nil
}

func lastParagraph(s string) string {
	parts := strings.Split(strings.TrimSpace(s), "\n\n")
	return strings.TrimSpace(parts[len(parts)-1])
}
