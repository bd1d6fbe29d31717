package banter

import (
	"encoding/json"
	"strings"
)

// Chunk is a sealed interface representing one element of a streamed reply.
// Providers decode their wire format into a Chunk at the SDK boundary.
// The unexported marker method prevents external implementations.
type Chunk interface {
	chunk()
}

// ChunkText is a chunk that is, or exposes, a single piece of text.
type ChunkText struct {
	Text string
}

func (ChunkText) chunk() {}

// ChunkMessage is a chunk carrying a message whose content is a list of parts.
type ChunkMessage struct {
	Parts []Part
}

func (ChunkMessage) chunk() {}

// ChunkUnknown is any chunk shape the client does not understand.
type ChunkUnknown struct{}

func (ChunkUnknown) chunk() {}

// Part is one element of a multi-part message content.
type Part struct {
	Text string
}

// TextOf returns the canonical text of a chunk. Message parts are
// concatenated in order. Unknown shapes yield the empty string.
func TextOf(c Chunk) string {
	switch c := c.(type) {
	case ChunkText:
		return c.Text
	case ChunkMessage:
		return joinParts(c.Parts, "")
	default:
		return ""
	}
}

// Response is a sealed interface representing a complete, non-streamed reply.
type Response interface {
	response()
}

// ResponseText is a reply that is a bare string.
type ResponseText struct {
	Text string
}

func (ResponseText) response() {}

// ResponseMessage is a reply carrying a message with content.
type ResponseMessage struct {
	Content MessageContent
}

func (ResponseMessage) response() {}

// ResponseTextField is a reply object exposing only a text field.
type ResponseTextField struct {
	Text string
}

func (ResponseTextField) response() {}

// ResponseRaw is a reply of unrecognised shape, kept as raw JSON.
type ResponseRaw struct {
	Raw json.RawMessage
}

func (ResponseRaw) response() {}

// MessageContent is the sealed union of message content forms.
type MessageContent interface {
	messageContent()
}

// ContentString is message content given as a single string.
type ContentString struct {
	Text string
}

func (ContentString) messageContent() {}

// ContentParts is message content given as a list of parts.
type ContentParts struct {
	Parts []Part
}

func (ContentParts) messageContent() {}

// DisplayText normalises a complete reply into the text shown to the user.
// Multi-part content is joined with single spaces, skipping empty parts.
func DisplayText(r Response) string {
	switch r := r.(type) {
	case ResponseText:
		return r.Text
	case ResponseMessage:
		switch c := r.Content.(type) {
		case ContentString:
			return c.Text
		case ContentParts:
			return joinParts(c.Parts, " ")
		}
		return ""
	case ResponseTextField:
		return r.Text
	case ResponseRaw:
		if len(r.Raw) == 0 {
			return "null"
		}
		return string(r.Raw)
	default:
		data, err := json.Marshal(r)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func joinParts(parts []Part, sep string) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, sep)
}

// Interface compliance checks.
var (
	_ Chunk = ChunkText{}
	_ Chunk = ChunkMessage{}
	_ Chunk = ChunkUnknown{}

	_ Response = ResponseText{}
	_ Response = ResponseMessage{}
	_ Response = ResponseTextField{}
	_ Response = ResponseRaw{}

	_ MessageContent = ContentString{}
	_ MessageContent = ContentParts{}
)
