package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/banter"
)

// ErrInvalidPattern indicates a malformed glob pattern.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// Glob inspects every regular file matching pattern. A pattern without
// meta characters names a single file. ** matches across directories.
func Glob(pattern string) ([]banter.File, error) {
	pattern = filepath.ToSlash(ExpandHome(pattern))
	base, rel := doublestar.SplitPattern(pattern)
	if rel == "" || !doublestar.ValidatePattern(rel) {
		return nil, fmt.Errorf("%s: %w", pattern, ErrInvalidPattern)
	}

	info, err := os.Stat(filepath.FromSlash(base))
	if err != nil {
		return nil, fmt.Errorf("access %s: %w", base, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", base)
	}

	var files []banter.File
	err = doublestar.GlobWalk(os.DirFS(filepath.FromSlash(base)), rel, func(path string, d iofs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		f, err := Inspect(filepath.Join(filepath.FromSlash(base), filepath.FromSlash(path)))
		if errors.Is(err, ErrNotRegular) {
			return nil
		}
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", pattern, err)
	}
	return files, nil
}
