// Package ingest turns syllabus sources (text files, HTML pages, URLs) into
// the single plain-text string the extractor consumes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for sources whose text layer must come from an external tool
var ErrUnsupportedFormat = errors.New("unsupported source format")

// Document is the extractor's input: the whole text up front plus a page count for display
type Document struct {
	Text   string `json:"-"`
	Pages  int    `json:"pages"`
	Source string `json:"source"`
}

// NewTextDocument wraps raw text, normalizing line breaks to LF.
// Pages are separated by form feeds, as pdftotext writes them.
func NewTextDocument(text, source string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Document{
		Text:   text,
		Pages:  strings.Count(strings.TrimRight(text, "\f\n"), "\f") + 1,
		Source: source,
	}
}

// Loader resolves a source string to a Document
type Loader struct {
	fetcher *Fetcher
}

// NewLoader creates a loader. A nil fetcher disables URL sources.
func NewLoader(fetcher *Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load reads a local file or, for http(s) sources, fetches the page
func (l *Loader) Load(ctx context.Context, source string) (Document, error) {
	if IsURL(source) {
		if l.fetcher == nil {
			return Document{}, fmt.Errorf("%w: URL sources are disabled", ErrUnsupportedFormat)
		}
		return l.fetcher.FetchDocument(ctx, source)
	}
	return LoadFile(source)
}

// LoadFile reads a local text or HTML file
func LoadFile(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return Document{}, fmt.Errorf("%w: %s (extract the PDF text layer first, e.g. pdftotext)", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	if ext == ".html" || ext == ".htm" {
		text, err := HTMLText(string(data))
		if err != nil {
			return Document{}, fmt.Errorf("parse %s: %w", path, err)
		}
		return NewTextDocument(text, path), nil
	}

	return NewTextDocument(string(data), path), nil
}

// IsURL reports whether source is an http or https URL
func IsURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
