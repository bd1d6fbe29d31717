// Package fs provides local file access: inspecting picked files, expanding
// glob patterns, storing uploads and allocating preview copies.
package fs

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/banter"
)

// ErrNotRegular indicates a path that is not a regular file.
var ErrNotRegular = errors.New("not a regular file")

// sniffLen is the number of bytes content detection looks at.
const sniffLen = 512

// Inspect describes the file at path. The MIME type is sniffed from the
// content, falling back to the extension when the content is inconclusive.
func Inspect(path string) (banter.File, error) {
	path = ExpandHome(path)
	info, err := os.Stat(path)
	if err != nil {
		return banter.File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return banter.File{}, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	mimeType, err := detectType(path)
	if err != nil {
		return banter.File{}, err
	}
	return banter.File{
		Name:     filepath.Base(path),
		Path:     path,
		MimeType: mimeType,
		Size:     info.Size(),
	}, nil
}

func detectType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	sniffed := baseType(http.DetectContentType(buf[:n]))
	if sniffed != "application/octet-stream" && sniffed != "text/plain" {
		return sniffed, nil
	}
	if byExt := baseType(mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))); byExt != "" {
		return byExt, nil
	}
	return sniffed, nil
}

// baseType strips MIME parameters such as charset.
func baseType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}
