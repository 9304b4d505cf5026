/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"math"
	"strings"
)

// DefaultPageWidthPx is A4 at 96 dpi.
const DefaultPageWidthPx = 794

type paperSize struct {
	name     string
	widthPt  float64
	heightPt float64
}

var papers = map[string]paperSize{
	"a4":     {name: "A4", widthPt: 595.28, heightPt: 841.89},
	"letter": {name: "Letter", widthPt: 612, heightPt: 792},
}

func lookupPaper(format string) (paperSize, error) {
	key := strings.ToLower(strings.TrimSpace(format))
	if key == "" {
		key = "a4"
	}
	p, ok := papers[key]
	if !ok {
		return paperSize{}, fmt.Errorf("unknown page format %q (want A4 or Letter)", format)
	}
	return p, nil
}

// PageSize returns the pixel page size for a paper format at the given width.
// A non-positive width uses DefaultPageWidthPx.
func PageSize(format string, widthPx int) (int, int, error) {
	p, err := lookupPaper(format)
	if err != nil {
		return 0, 0, err
	}
	if widthPx <= 0 {
		widthPx = DefaultPageWidthPx
	}
	return widthPx, int(math.Round(float64(widthPx) * p.heightPt / p.widthPt)), nil
}
