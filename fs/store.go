package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/banter"
	"github.com/google/uuid"
)

// Interface compliance check.
var _ banter.Uploader = (*Store)(nil)

// Store is an Uploader that copies files into a local directory. References
// it returns are absolute paths inside that directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Upload copies files into the store in order.
func (s *Store) Upload(ctx context.Context, files []banter.File) ([]banter.FileRef, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	refs := make([]banter.FileRef, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := filepath.Join(s.dir, uuid.NewString()+strings.ToLower(filepath.Ext(f.Name)))
		if err := copyFile(dst, f.Path); err != nil {
			return nil, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		refs = append(refs, banter.FileRef{Path: dst, MimeType: f.MimeType})
	}
	return refs, nil
}

// ReadFile returns the content of a stored file. Paths outside the store
// are rejected.
func (s *Store) ReadFile(path string) ([]byte, error) {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if rel, err := filepath.Rel(dir, abs); err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%s is outside the upload store", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return data, nil
}
