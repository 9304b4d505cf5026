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
	"encoding/base64"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"goscriptwriter/internal/domain"
)

// HTMLOptions controls the standalone HTML rendition.
type HTMLOptions struct {
	Title         string
	IncludeImages bool
}

var markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))

const htmlStyle = `body{font-family:"Courier New",monospace;max-width:48rem;margin:2rem auto;color:#1f2937}
section.scene{background:#f3f4f6;border:1px solid #d1d5db;border-radius:1rem;padding:1rem;margin-bottom:1.5rem}
section.scene h2{color:#1d4ed8;margin-top:0}
section.scene img{max-width:100%;border-radius:.5rem}`

// WriteHTML renders the scenes as a self-contained HTML page. Bodies are
// treated as Markdown; raw HTML inside them is not passed through.
func WriteHTML(w io.Writer, scenes []domain.Scene, opt HTMLOptions) error {
	var buf bytes.Buffer
	title := opt.Title
	if title == "" {
		title = "Generated Script"
	}
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>%s</style>\n</head>\n<body>\n",
		html.EscapeString(title), htmlStyle)
	fmt.Fprintf(&buf, "<h1>%s</h1>\n", html.EscapeString(title))
	for _, sc := range scenes {
		fmt.Fprintf(&buf, "<section class=\"scene\" id=\"scene-%d\">\n", sc.Index+1)
		if sc.Header != "" {
			fmt.Fprintf(&buf, "<h2>%s</h2>\n", html.EscapeString(sc.Header))
		}
		if sc.Body != "" {
			if err := markdown.Convert([]byte(sc.Body), &buf); err != nil {
				return fmt.Errorf("render scene %d: %w", sc.Index, err)
			}
		}
		if opt.IncludeImages && sc.HasImage() {
			alt := sc.Image.Alt
			if alt == "" {
				alt = fmt.Sprintf("Scene %d", sc.Index+1)
			}
			fmt.Fprintf(&buf, "<figure><img src=\"data:%s;base64,%s\" alt=\"%s\"></figure>\n",
				html.EscapeString(sc.Image.MimeType), base64.StdEncoding.EncodeToString(sc.Image.Data), html.EscapeString(alt))
		}
		buf.WriteString("</section>\n")
	}
	buf.WriteString("</body>\n</html>\n")
	_, err := w.Write(buf.Bytes())
	return err
}
