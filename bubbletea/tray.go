package bubbletea

import (
	"fmt"
	"strings"

	"github.com/fwojciec/banter"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// maxNameLen is the number of user-perceived characters of a file name
// shown in the attachment tray.
const maxNameLen = 16

const ellipsis = "…"

// truncateName shortens s to at most n grapheme clusters, ending with an
// ellipsis when cut.
func truncateName(s string, n int) string {
	if uniseg.GraphemeClusterCount(s) <= n {
		return s
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for i := 0; i < n-1 && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	b.WriteString(ellipsis)
	return b.String()
}

// fit cuts s to width terminal cells. Non-positive widths leave s unchanged.
func fit(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// trayLine lists pending attachments as numbered chips.
func trayLine(atts []banter.Attachment, width int) string {
	chips := make([]string, len(atts))
	for i, a := range atts {
		chips[i] = fmt.Sprintf("[%d] %s", i+1, truncateName(a.File.Name, maxNameLen))
	}
	line := fmt.Sprintf("%d/%d  %s", len(atts), banter.MaxAttachments, strings.Join(chips, "  "))
	return fit(line, width)
}

// suggestionLine shows the suggested prompts.
func suggestionLine(suggestions []string, width int) string {
	return fit("Tab: "+strings.Join(suggestions, " · "), width)
}

// statusLine places right flush against the right edge and cuts left to
// the remaining space. right is dropped when it does not fit.
func statusLine(left, right string, width int) string {
	if width <= 0 {
		return left + "  " + right
	}
	rw := runewidth.StringWidth(right)
	if right == "" || rw+2 > width {
		return fit(left, width)
	}
	left = fit(left, width-rw-1)
	gap := width - runewidth.StringWidth(left) - rw
	return left + strings.Repeat(" ", gap) + right
}
