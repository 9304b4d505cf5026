/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"io"

	"goscriptwriter/internal/domain"
	"goscriptwriter/internal/script"
)

// WriteText writes the plain-text rendition of scenes. It returns
// script.ErrEmptyContent when there is nothing to write.
func WriteText(w io.Writer, scenes []domain.Scene) error {
	txt, err := script.PlainTextOrError(scenes)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, txt+"\n")
	return err
}
