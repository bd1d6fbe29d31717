package banter

import (
	"strings"
	"time"
)

// FileRef is a reference to a file held by remote storage.
type FileRef struct {
	Path     string
	MimeType string
}

// Turn is one message in the conversation.
//
// Previews holds the preview URLs of the attachments sent with a user turn.
// They are labels only: the handles behind them belong to the attachment
// manager and may already be released.
type Turn struct {
	ID        string
	Text      string
	Role      Role
	Timestamp time.Time
	Files     []FileRef
	Previews  []string
	Failed    bool
}

// IsUser reports whether the turn was authored by the user.
func (t Turn) IsUser() bool { return t.Role == RoleUser }

// Message converts the turn into a request message. Turns carrying file
// references become file items followed by the trimmed text, if any.
func (t Turn) Message() Message {
	if len(t.Files) == 0 {
		return TextMessage(t.Role, t.Text)
	}
	return Message{Role: t.Role, Content: fileContent(t.Files, t.Text)}
}

func fileContent(files []FileRef, text string) []ContentItem {
	items := make([]ContentItem, 0, len(files)+1)
	for _, f := range files {
		items = append(items, FileItem{Path: f.Path, MimeType: f.MimeType})
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		items = append(items, TextItem{Text: trimmed})
	}
	return items
}
