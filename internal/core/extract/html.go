package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTML drops script, style and noscript bodies and returns the visible
// text, one block per line.
type HTML struct{}

var skippedTags = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "section": true, "article": true, "blockquote": true,
	"pre": true, "ul": true, "ol": true, "title": true, "header": true, "footer": true,
}

func (HTML) ExtractText(_ context.Context, data []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(data))

	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			return collapseLines(b.String()), nil
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedTags[tag] {
				skip++
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedTags[tag] && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

// collapseLines squeezes runs of spaces and drops blank lines.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
