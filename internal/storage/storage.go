// Package storage persists uploaded images for the duration of processing.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyName is returned when a filename sanitizes to nothing.
var ErrEmptyName = errors.New("filename is empty after sanitizing")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// asciiFold decomposes accented characters and drops everything outside ASCII.
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// SanitizeFilename reduces a client-supplied filename to a flat, ASCII-only
// name made of letters, digits, '_', '.' and '-'. Path separators become
// separators between words, so "../../etc/passwd" yields "etc_passwd".
func SanitizeFilename(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}
	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeChars.ReplaceAllString(folded, "")
	return strings.Trim(folded, "._")
}

// HasAllowedExtension reports whether the text after the last '.' of filename,
// lowercased, is in allowed.
func HasAllowedExtension(filename string, allowed map[string]struct{}) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	_, ok := allowed[strings.ToLower(filename[i+1:])]
	return ok
}

// Store writes uploads into a single directory.
type Store struct {
	Dir string
}

// New creates the upload directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// Save copies r to a new file named "<uuid>_<sanitized name>" and returns its
// path with a cleanup func that removes it. Concurrent saves of the same name
// never collide.
func (s *Store) Save(r io.Reader, filename string) (string, func(), error) {
	safe := SanitizeFilename(filename)
	if safe == "" {
		return "", nil, ErrEmptyName
	}

	path := filepath.Join(s.Dir, uuid.NewString()+"_"+safe)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("create upload file: %w", err)
	}

	cleanup := func() {
		f.Close()
		os.Remove(path)
	}

	if _, err := io.Copy(f, r); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("close upload file: %w", err)
	}

	return path, func() { os.Remove(path) }, nil
}
