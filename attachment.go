package banter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MaxAttachments bounds the number of pending attachments.
const MaxAttachments = 6

// File is a local file chosen by the user.
type File struct {
	Name     string
	Path     string
	MimeType string
	Size     int64
}

// IsImage reports whether the file has an image MIME type.
func (f File) IsImage() bool { return strings.HasPrefix(f.MimeType, "image/") }

// Previewer allocates and releases local preview handles for files.
type Previewer interface {
	Open(f File) (string, error)
	Release(url string) error
}

// Attachment is a pending file with its preview handle.
type Attachment struct {
	ID         string
	File       File
	PreviewURL string
}

// Attachments tracks the files pending for the next submit. Every preview
// handle it allocates is released exactly once, by Remove or Clear.
type Attachments struct {
	mu        sync.Mutex
	previewer Previewer
	logger    *slog.Logger
	items     []Attachment
}

// NewAttachments creates an empty attachment set. A nil previewer leaves
// PreviewURL empty; a nil logger discards release failures.
func NewAttachments(previewer Previewer, logger *slog.Logger) *Attachments {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Attachments{previewer: previewer, logger: logger}
}

// Add accepts image files up to MaxAttachments in total, keeping the oldest
// entries. Files that do not fit get no preview. Preview failures skip the
// file and are returned joined alongside the accepted attachments.
func (a *Attachments) Add(files []File) ([]Attachment, error) {
	images := make([]File, 0, len(files))
	for _, f := range files {
		if f.IsImage() {
			images = append(images, f)
		}
	}
	if len(images) > MaxAttachments {
		images = images[:MaxAttachments]
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	room := MaxAttachments - len(a.items)
	if room <= 0 {
		return nil, nil
	}
	if len(images) > room {
		images = images[:room]
	}

	var (
		added []Attachment
		errs  []error
	)
	for _, f := range images {
		att := Attachment{ID: uuid.NewString(), File: f}
		if a.previewer != nil {
			url, err := a.previewer.Open(f)
			if err != nil {
				errs = append(errs, fmt.Errorf("preview %s: %w", f.Name, err))
				continue
			}
			att.PreviewURL = url
		}
		a.items = append(a.items, att)
		added = append(added, att)
	}
	return added, errors.Join(errs...)
}

// Remove releases and drops the attachment with the given id. It reports
// whether the id was present.
func (a *Attachments) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, att := range a.items {
		if att.ID != id {
			continue
		}
		a.release(att)
		a.items = append(a.items[:i:i], a.items[i+1:]...)
		return true
	}
	return false
}

// Clear releases every preview handle and empties the set.
func (a *Attachments) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, att := range a.items {
		a.release(att)
	}
	a.items = nil
}

// List returns a snapshot of the pending attachments in insertion order.
func (a *Attachments) List() []Attachment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Attachment, len(a.items))
	copy(out, a.items)
	return out
}

// Files returns the pending files in insertion order.
func (a *Attachments) Files() []File {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]File, len(a.items))
	for i, att := range a.items {
		out[i] = att.File
	}
	return out
}

// Previews returns the pending preview URLs in insertion order.
func (a *Attachments) Previews() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.items))
	for _, att := range a.items {
		if att.PreviewURL != "" {
			out = append(out, att.PreviewURL)
		}
	}
	return out
}

// Len returns the number of pending attachments.
func (a *Attachments) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// release must be called with mu held.
func (a *Attachments) release(att Attachment) {
	if a.previewer == nil || att.PreviewURL == "" {
		return
	}
	if err := a.previewer.Release(att.PreviewURL); err != nil {
		a.logger.Warn("release preview", "id", att.ID, "url", att.PreviewURL, "error", err)
	}
}
