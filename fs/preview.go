package fs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/banter"
	"github.com/google/uuid"
)

// Interface compliance check.
var _ banter.Previewer = (*Previews)(nil)

// Previews is a Previewer that keeps a private copy of each previewed file
// and hands out file:// URLs to it.
type Previews struct {
	dir string
}

// NewPreviews returns a previewer keeping copies in dir.
func NewPreviews(dir string) *Previews {
	return &Previews{dir: dir}
}

// Open copies f into the preview directory and returns its URL.
func (p *Previews) Open(f banter.File) (string, error) {
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return "", fmt.Errorf("create preview directory: %w", err)
	}
	dst, err := filepath.Abs(filepath.Join(p.dir, uuid.NewString()+strings.ToLower(filepath.Ext(f.Name))))
	if err != nil {
		return "", fmt.Errorf("resolve preview path: %w", err)
	}
	if err := copyFile(dst, f.Path); err != nil {
		return "", fmt.Errorf("preview %s: %w", f.Name, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String(), nil
}

// Release deletes the copy behind a URL returned by Open.
func (p *Previews) Release(rawURL string) error {
	path, err := p.path(rawURL)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("release preview: %w", err)
	}
	return nil
}

// path resolves a preview URL to the copy it names.
func (p *Previews) path(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return "", fmt.Errorf("not a preview url: %q", rawURL)
	}
	dir, err := filepath.Abs(p.dir)
	if err != nil {
		return "", fmt.Errorf("resolve preview directory: %w", err)
	}
	path := filepath.FromSlash(u.Path)
	if filepath.Dir(path) != dir {
		return "", fmt.Errorf("preview %q is not owned by this previewer", rawURL)
	}
	return path, nil
}
