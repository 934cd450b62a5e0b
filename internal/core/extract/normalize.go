package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// normalizeText puts extracted text in NFC, drops NUL and other control
// characters Postgres text columns reject, and squeezes blank lines.
func normalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch == '\r':
			b.WriteByte('\n')
		case ch == '\n' || ch == '\t':
			b.WriteRune(ch)
		case ch < 0x20 || ch == 0x7f:
		default:
			b.WriteRune(ch)
		}
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
