package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/zjrosen/pyedit/internal/log"
)

// SourceExtensions are the file extensions opened without --force.
var SourceExtensions = []string{".py", ".pyw"}

// ErrUnsupportedFile is returned by CheckExtension for non-Python files.
var ErrUnsupportedFile = errors.New("not a Python source file")

// ErrNotText is returned by Load for files that are not valid UTF-8.
var ErrNotText = errors.New("file is not UTF-8 text")

// CheckExtension reports ErrUnsupportedFile unless path ends in one of
// SourceExtensions.
func CheckExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if slices.Contains(SourceExtensions, ext) {
		return nil
	}
	return fmt.Errorf("%s: %w (want %s)", path, ErrUnsupportedFile, strings.Join(SourceExtensions, ", "))
}

// ReadText reads path from fs, normalizing CRLF line endings.
func ReadText(fs afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", path, ErrNotText)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

// Load reads path from fs into a new document.
func Load(fs afero.Fs, path string) (*Document, error) {
	text, err := ReadText(fs, path)
	if err != nil {
		return nil, err
	}
	d := New(text)
	d.path = path
	log.Info(log.CatDocument, "loaded", "path", path, "doc", d.id.String(), "blocks", d.BlockCount())
	return d, nil
}
