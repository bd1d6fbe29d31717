package bubbletea

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/banter"
	"github.com/fwojciec/banter/chroma"
	"github.com/fwojciec/banter/goldmark"
)

const timestampLayout = "15:04"

// turnRenderer renders conversation turns. Assistant text is cached per
// turn so a streaming reply only re-renders its unfinished tail.
type turnRenderer struct {
	theme  banter.Theme
	styles Styles
	code   *chroma.Highlighter
	blocks map[string]*textBlock
}

func newTurnRenderer(theme banter.Theme, styles Styles) *turnRenderer {
	return &turnRenderer{
		theme:  theme,
		styles: styles,
		code:   chroma.New(chroma.WithTheme(theme)),
		blocks: make(map[string]*textBlock),
	}
}

// reset drops all cached output.
func (r *turnRenderer) reset() {
	clear(r.blocks)
}

// render draws a single turn. Empty assistant turns render as "".
func (r *turnRenderer) render(t banter.Turn, width int) string {
	switch {
	case t.IsUser():
		return r.renderUser(t, width)
	case t.Text == "":
		return ""
	case t.Failed:
		header := r.styles.Muted.Render(t.Timestamp.Format(timestampLayout))
		body := lipgloss.NewStyle().Width(width).Render(r.styles.Error.Render(Sanitize(t.Text)))
		return header + "\n" + body
	default:
		b, ok := r.blocks[t.ID]
		if !ok {
			b = newTextBlock(r.renderRich)
			r.blocks[t.ID] = b
		}
		b.Set(Sanitize(t.Text))
		header := r.styles.Muted.Render(t.Timestamp.Format(timestampLayout))
		return header + "\n" + b.View(width)
	}
}

func (r *turnRenderer) renderUser(t banter.Turn, width int) string {
	content := r.styles.UserMsg.Render("> ") + Sanitize(t.Text)
	out := lipgloss.NewStyle().Width(width).Render(content)
	if n := len(t.Previews); n > 0 {
		label := "image"
		if n > 1 {
			label = "images"
		}
		out += "\n" + r.styles.Chip.Render(fmt.Sprintf("  [%d %s]", n, label))
	}
	return out
}

// renderRich splits text into prose and fenced code. Prose goes through the
// markdown renderer and code through the syntax highlighter.
func (r *turnRenderer) renderRich(text string, width int) string {
	var parts []string
	for seg := range banter.Segments(text) {
		if seg.IsCode() {
			parts = append(parts, r.code.Render(seg.Content, seg.Lang, width))
			continue
		}
		out := strings.Trim(goldmark.Render(seg.Content, width, r.theme), "\n")
		if strings.TrimSpace(out) != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n\n")
}

// textBlock renders a growing piece of assistant text. Finalized paragraphs
// (separated by double newline) are rendered once per width and cached;
// only the trailing unfinalized text is re-rendered on each change.
type textBlock struct {
	render func(text string, width int) string
	raw    string

	// finalizedRaw is the stable prefix ending at the last double newline.
	finalizedRaw     string
	finalizedByWidth map[int]string
}

func newTextBlock(render func(string, int) string) *textBlock {
	return &textBlock{
		render:           render,
		finalizedByWidth: make(map[int]string),
	}
}

// Set replaces the block text.
func (b *textBlock) Set(raw string) {
	if raw == b.raw {
		return
	}
	if !strings.HasPrefix(raw, b.finalizedRaw) {
		b.finalizedRaw = ""
		clear(b.finalizedByWidth)
	}
	b.raw = raw
	b.promoteFinalized()
}

func (b *textBlock) View(width int) string {
	finalized := b.renderFinalized(width)
	trailing := b.trailingRaw()
	if hasUnclosedFence(trailing) {
		// Close the fence only for rendering so partial streams display safely.
		trailing += "\n```"
	}
	if strings.TrimSpace(trailing) == "" {
		return finalized
	}
	rendered := b.render(trailing, width)
	if strings.TrimSpace(rendered) == "" {
		return finalized
	}
	if finalized == "" {
		return rendered
	}
	// The paragraph break between independently rendered fragments is
	// rebuilt with a single "\n\n" to match full-document output.
	return strings.TrimRight(finalized, "\n") + "\n\n" + strings.TrimLeft(rendered, "\n")
}

// promoteFinalized finds the last "\n\n" boundary that does not fall inside
// an unclosed fenced code block or display math.
func (b *textBlock) promoteFinalized() {
	raw := b.raw
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) && !hasUnclosedMath(candidate) {
			if candidate != b.finalizedRaw {
				b.finalizedRaw = candidate
				clear(b.finalizedByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *textBlock) renderFinalized(width int) string {
	if width <= 0 || b.finalizedRaw == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	rendered := b.render(b.finalizedRaw, width)
	b.finalizedByWidth[width] = rendered
	return rendered
}

func (b *textBlock) trailingRaw() string {
	if b.finalizedRaw == "" {
		return b.raw
	}
	return strings.TrimPrefix(b.raw, b.finalizedRaw+"\n\n")
}

// hasUnclosedFence detects whether s contains an unclosed fenced code block
// by checking for an odd number of "```" occurrences.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}

func hasUnclosedMath(s string) bool {
	return strings.Count(s, "$$")%2 == 1
}
