// Package builder turns an ordered line sequence into a rich document.
package builder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/yuin/goldmark"
)

// Mode selects how line content is interpreted.
type Mode string

const (
	// ModePlain maps every line to exactly one paragraph.
	ModePlain Mode = "plain"
	// ModeMarkdown parses markdown-like syntax in line content.
	ModeMarkdown Mode = "markdown"
)

// ParseMode validates a mode name. An empty name selects plain mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePlain:
		return ModePlain, nil
	case ModeMarkdown:
		return ModeMarkdown, nil
	}
	return "", fmt.Errorf("unknown document mode %q", s)
}

// Plain builds one paragraph per line. Empty lines become empty paragraphs
// and empty input yields a single empty paragraph.
func Plain(contents []string) *doctree.Document {
	if len(contents) == 0 {
		return emptyDocument()
	}
	doc := &doctree.Document{Blocks: make([]*doctree.Block, len(contents))}
	for i, c := range contents {
		doc.Blocks[i] = doctree.Paragraph(c)
	}
	return doc
}

// Builder builds documents from lines, degrading to plain mode when the
// markdown conversion fails.
type Builder struct {
	log *slog.Logger
	md  goldmark.Markdown
}

// New creates a Builder.
func New(log *slog.Logger) *Builder {
	return &Builder{log: log, md: newMarkdown()}
}

// Build converts ls (already ordered by line number) into a document and
// reports the mode actually used.
func (b *Builder) Build(ls []lines.Line, mode Mode) (*doctree.Document, Mode) {
	contents := lines.Contents(ls)
	if mode != ModeMarkdown {
		return Plain(contents), ModePlain
	}

	doc, err := b.markdown(contents)
	if err != nil {
		b.log.Warn("markdown conversion failed, using plain mode", "lines", len(contents), "error", err)
		return Plain(contents), ModePlain
	}
	return doc, ModeMarkdown
}

func (b *Builder) markdown(contents []string) (doc *doctree.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("markdown: parser panic: %v", r)
		}
	}()
	return Markdown(b.md, contents)
}
