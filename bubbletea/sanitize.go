package bubbletea

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/banter"
)

// proseTab replaces tabs outside fenced code, where they would break wrapping.
const proseTab = "    "

// Sanitize makes remote text safe to print. Escape sequences, C0 controls
// other than tab and newline, and bidirectional overrides are removed. CRLF
// becomes LF and a lone CR overwrites the line from its start, as a terminal
// would. Tabs survive only inside fenced code.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r <= 0x1F, r == 0x7F, isBidiControl(r):
			return -1
		}
		return r
	}, s)
	if strings.ContainsRune(s, '\r') {
		lines := strings.Split(s, "\n")
		for i, line := range lines {
			lines[i] = overwrite(line)
		}
		s = strings.Join(lines, "\n")
	}
	if !strings.ContainsRune(s, '\t') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for seg := range banter.Segments(s) {
		if seg.IsCode() {
			b.WriteString(seg.Source())
			continue
		}
		b.WriteString(strings.ReplaceAll(seg.Content, "\t", proseTab))
	}
	return b.String()
}

// isBidiControl reports embedding, override and isolate controls, which can
// reorder how the rest of a line is displayed.
func isBidiControl(r rune) bool {
	return (r >= 0x202A && r <= 0x202E) || (r >= 0x2066 && r <= 0x2069)
}

// overwrite applies carriage returns within a single line.
func overwrite(line string) string {
	parts := strings.Split(line, "\r")
	buf := []rune(parts[0])
	for _, part := range parts[1:] {
		for i, r := range []rune(part) {
			if i < len(buf) {
				buf[i] = r
			} else {
				buf = append(buf, r)
			}
		}
	}
	return string(buf)
}
