// Package chroma renders fenced code blocks with syntax highlighting.
package chroma

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/banter"
)

// Highlighter turns code into terminal output.
type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
	theme     banter.Theme
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithStyle selects a chroma style by name. Unknown names fall back to the
// default style.
func WithStyle(name string) Option {
	return func(h *Highlighter) {
		if s := styles.Get(name); s != nil {
			h.style = s
		}
	}
}

// WithFormatter selects a chroma formatter by name, e.g. "terminal16m" or
// "noop" for uncoloured output.
func WithFormatter(name string) Option {
	return func(h *Highlighter) {
		if f := formatters.Get(name); f != nil {
			h.formatter = f
		}
	}
}

// WithTheme sets the colours of the block frame.
func WithTheme(t banter.Theme) Option {
	return func(h *Highlighter) { h.theme = t }
}

// New returns a highlighter using the monokai style and 256-colour output.
func New(opts ...Option) *Highlighter {
	h := &Highlighter{
		style:     styles.Get("monokai"),
		formatter: formatters.Get("terminal256"),
		theme:     banter.DefaultTheme(),
	}
	if h.style == nil {
		h.style = styles.Fallback
	}
	if h.formatter == nil {
		h.formatter = formatters.Fallback
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Highlight colours code. The lexer is chosen by lang, then by content
// analysis. Code that cannot be tokenised is returned unchanged.
func (h *Highlighter) Highlight(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// Render draws a code block: a language label followed by the highlighted
// lines behind a gutter bar. Lines wider than width are cut.
func (h *Highlighter) Render(code, lang string, width int) string {
	muted := lipgloss.NewStyle().Foreground(ansiColor(h.theme.Muted))
	gutter := muted.Render("│ ")
	line := lipgloss.NewStyle()
	if width > 2 {
		line = line.MaxWidth(width - 2)
	}

	var b strings.Builder
	if lang != "" {
		b.WriteString(muted.Bold(true).Render(lang))
		b.WriteByte('\n')
	}
	highlighted := strings.TrimRight(h.Highlight(strings.TrimRight(code, "\n"), lang), "\n")
	for i, l := range strings.Split(highlighted, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(gutter)
		b.WriteString(line.Render(l))
	}
	return b.String()
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
