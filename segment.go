package banter

import (
	"iter"
	"regexp"
)

// SegmentType distinguishes plain text from fenced code.
type SegmentType string

const (
	SegmentText SegmentType = "text"
	SegmentCode SegmentType = "code"
)

// Segment is a sub-span of message text.
type Segment struct {
	Type    SegmentType
	Content string
	// Lang is the fence language tag. Empty for text and untagged code.
	Lang string
}

// IsCode reports whether the segment is a fenced code block.
func (s Segment) IsCode() bool { return s.Type == SegmentCode }

// Source returns the text the segment was parsed from. Code segments are
// re-wrapped in their fence.
func (s Segment) Source() string {
	if s.Type != SegmentCode {
		return s.Content
	}
	return "```" + s.Lang + "\n" + s.Content + "```"
}

// fencePattern matches a fenced block lazily up to the next closing fence.
// The newline after the optional language tag is required.
var fencePattern = regexp.MustCompile("```([a-zA-Z0-9_-]+)?\n([\\s\\S]*?)```")

// Segments returns a lazy sequence of the text and code segments of text in
// input order. Empty spans between fences are skipped. An unterminated fence
// is part of the trailing text.
func Segments(text string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		last := 0
		for _, m := range fencePattern.FindAllStringSubmatchIndex(text, -1) {
			if m[0] > last {
				if !yield(Segment{Type: SegmentText, Content: text[last:m[0]]}) {
					return
				}
			}
			seg := Segment{Type: SegmentCode, Content: text[m[4]:m[5]]}
			if m[2] >= 0 {
				seg.Lang = text[m[2]:m[3]]
			}
			if !yield(seg) {
				return
			}
			last = m[1]
		}
		if last < len(text) {
			yield(Segment{Type: SegmentText, Content: text[last:]})
		}
	}
}

// ParseSegments collects Segments into a slice.
func ParseSegments(text string) []Segment {
	var out []Segment
	for s := range Segments(text) {
		out = append(out, s)
	}
	return out
}
