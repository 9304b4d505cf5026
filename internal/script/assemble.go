/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "goscriptwriter/internal/domain"

// Assemble zips segments with images by encounter order: scene i receives
// images[i] when present. Surplus images are dropped.
func Assemble(segments []Segment, images []domain.ImageRef) []domain.Scene {
	scenes := make([]domain.Scene, 0, len(segments))
	for i, seg := range segments {
		sc := domain.Scene{Index: i, Header: seg.Header, Body: seg.Body}
		if i < len(images) {
			img := images[i]
			sc.Image = &img
		}
		scenes = append(scenes, sc)
	}
	return scenes
}
