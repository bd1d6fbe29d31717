package goldmark

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Inline math is converted before parsing and carried through goldmark
// between two private-use runes.
const (
	mathOpen  = "\uE000"
	mathClose = "\uE001"
)

var displayMath = regexp.MustCompile(`(?s)\$\$(.+?)\$\$|\\\[(.+?)\\\]`)

// span is a run of markdown or a display math expression.
type span struct {
	text string
	math bool
}

// splitDisplayMath separates $$…$$ and \[…\] blocks from the surrounding
// markdown. Unterminated delimiters stay markdown.
func splitDisplayMath(src string) []span {
	var spans []span
	last := 0
	for _, m := range displayMath.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > last {
			spans = append(spans, span{text: src[last:m[0]]})
		}
		var body string
		if m[2] >= 0 {
			body = src[m[2]:m[3]]
		} else {
			body = src[m[4]:m[5]]
		}
		spans = append(spans, span{text: body, math: true})
		last = m[1]
	}
	if last < len(src) {
		spans = append(spans, span{text: src[last:]})
	}
	return spans
}

// markInlineMath replaces $…$ and \(…\) with their Unicode rendering
// wrapped in mathOpen and mathClose. A $ opens math only when followed by a
// non-space and closes only when preceded by a non-space and not followed by
// a digit, so prices such as $5 and $10 stay text. Code spans, closed by a
// backtick run of the same length, are copied verbatim. An unmatched run is
// literal text.
func markInlineMath(src string) string {
	var b strings.Builder
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '`':
			n := backtickRun(src, i)
			end := i + n
			if j := closingRun(src, end, n); j >= 0 {
				end = j + n
			}
			b.WriteString(src[i:end])
			i = end - 1
			continue
		case c == '\\' && i+1 < len(src) && src[i+1] == '(':
			if end := strings.Index(src[i+2:], `\)`); end >= 0 {
				b.WriteString(mathOpen + TeX(src[i+2:i+2+end]) + mathClose)
				i += end + 3
				continue
			}
		case c == '\\' && i+1 < len(src) && src[i+1] == '$':
			b.WriteString(`\$`)
			i++
			continue
		case c == '$':
			if end := closingDollar(src, i+1); end > 0 {
				b.WriteString(mathOpen + TeX(src[i+1:end]) + mathClose)
				i = end
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// backtickRun returns the number of consecutive backticks at src[i:].
func backtickRun(src string, i int) int {
	n := 0
	for i+n < len(src) && src[i+n] == '`' {
		n++
	}
	return n
}

// closingRun finds the next run of exactly n backticks at or after start.
func closingRun(src string, start, n int) int {
	for j := start; j < len(src); {
		if src[j] != '`' {
			j++
			continue
		}
		run := backtickRun(src, j)
		if run == n {
			return j
		}
		j += run
	}
	return -1
}

func closingDollar(src string, start int) int {
	if start >= len(src) || isSpace(src[start]) || src[start] == '$' {
		return -1
	}
	for j := start; j < len(src); j++ {
		switch src[j] {
		case '\n':
			return -1
		case '$':
			if isSpace(src[j-1]) {
				continue
			}
			if j+1 < len(src) && src[j+1] >= '0' && src[j+1] <= '9' {
				continue
			}
			return j
		}
	}
	return -1
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' }

// kindMath is the node kind of inline math.
var kindMath = ast.NewNodeKind("Math")

// mathNode is inline math already converted to Unicode.
type mathNode struct {
	ast.BaseInline
	Value []byte
}

func (n *mathNode) Kind() ast.NodeKind { return kindMath }

func (n *mathNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Value": string(n.Value)}, nil)
}

// mathParser recognises the inline math markers inserted by markInlineMath.
type mathParser struct{}

func (mathParser) Trigger() []byte { return []byte{mathOpen[0]} }

func (mathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if !bytes.HasPrefix(line, []byte(mathOpen)) {
		return nil
	}
	body := line[len(mathOpen):]
	end := bytes.Index(body, []byte(mathClose))
	if end < 0 {
		return nil
	}
	n := &mathNode{Value: append([]byte(nil), body[:end]...)}
	block.Advance(len(mathOpen) + end + len(mathClose))
	return n
}
