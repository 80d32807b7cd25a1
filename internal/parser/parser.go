// Package parser extracts resume lines from uploaded files.
//
// Every parser yields markdown-flavoured plain lines: headings detected in
// the source format are prefixed with '#', list items with "- ". The lines
// are stored verbatim, one backend line record per entry.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Parser converts raw document bytes into ordered line contents.
type Parser interface {
	Parse(r io.Reader, filename string) ([]string, error)
}

// Options tune format-specific behaviour.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".markdown":
		return &TextParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// SplitLines splits text into lines, normalizing line endings and trailing
// whitespace. Blank lines are kept; a final newline does not add a line.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	out := strings.Split(text, "\n")
	for i, l := range out {
		out[i] = strings.TrimRight(l, " \t\f\v")
	}
	return out
}

// lineWriter accumulates lines and collapses runs of blank lines, so
// structural gaps in the source never produce more than one empty line.
type lineWriter struct {
	lines []string
}

func (w *lineWriter) add(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		w.blank()
		return
	}
	w.lines = append(w.lines, s)
}

func (w *lineWriter) blank() {
	if len(w.lines) == 0 || w.lines[len(w.lines)-1] == "" {
		return
	}
	w.lines = append(w.lines, "")
}

func (w *lineWriter) heading(level int, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	w.blank()
	w.lines = append(w.lines, strings.Repeat("#", level)+" "+s)
}

func (w *lineWriter) result() []string {
	out := w.lines
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
