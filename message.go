package banter

import "strings"

// Message is one entry of an outbound chat request.
type Message struct {
	Role    Role
	Content []ContentItem
}

// TextMessage returns a message whose content is a single text item.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentItem{TextItem{Text: text}}}
}

// Text returns the concatenation of the message's text items.
func (m Message) Text() string {
	var b strings.Builder
	for _, item := range m.Content {
		if t, ok := item.(TextItem); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ContentItem is a sealed interface representing one piece of request content.
// The unexported marker method prevents external implementations.
type ContentItem interface {
	contentItem()
}

// TextItem carries plain text.
type TextItem struct {
	Text string
}

func (TextItem) contentItem() {}

// FileItem references a file previously uploaded to remote storage.
type FileItem struct {
	Path     string
	MimeType string
}

func (FileItem) contentItem() {}

// Interface compliance checks.
var (
	_ ContentItem = TextItem{}
	_ ContentItem = FileItem{}
)
