package extract

import (
	"context"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// PlainText decodes UTF-8 (or BOM-marked UTF-16), replacing undecodable
// bytes with U+FFFD instead of failing.
type PlainText struct{}

func (PlainText) ExtractText(_ context.Context, data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD"), nil
	}
	return strings.ToValidUTF8(string(out), "\uFFFD"), nil
}
