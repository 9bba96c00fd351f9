package ingest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrUnsupported    = errors.New("unsupported file format")
	ErrOCRUnavailable = errors.New("text extraction from images is not available")
	ErrNoText         = errors.New("no readable text found in file")
)

// Extractor pulls plain text out of one file format.
type Extractor interface {
	Extract(r io.Reader) (string, error)
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// ForFile picks the extractor for filename's extension.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".text", ".csv":
		return TextExtractor{}, nil
	case ".md", ".markdown":
		return MarkdownExtractor{}, nil
	case ".html", ".htm":
		return HTMLExtractor{}, nil
	case ".pdf":
		return PDFExtractor{}, nil
	case ".docx":
		return DocxExtractor{}, nil
	}
	if imageExts[ext] {
		return nil, ErrOCRUnavailable
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

// IsSupported reports whether Extract can read filename.
func IsSupported(filename string) bool {
	_, err := ForFile(filename)
	return err == nil
}

// Extract reads r as the format implied by filename and returns cleaned text.
func Extract(filename string, r io.Reader) (string, error) {
	ex, err := ForFile(filename)
	if err != nil {
		return "", err
	}
	raw, err := ex.Extract(r)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(filename), err)
	}
	text := Clean(raw)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Clean applies NFKC normalization and drops control characters other than
// newline and tab.
func Clean(text string) string {
	out := norm.NFKC.String(text)
	out = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, out)
	return strings.TrimSpace(out)
}
