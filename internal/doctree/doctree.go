package doctree

import (
	"strings"

	"github.com/dgallion1/resumedit/internal/lines"
)

// BlockType tags the variant of a Block.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockList      BlockType = "list"
	BlockListItem  BlockType = "listitem"
	BlockQuote     BlockType = "quote"
	BlockCode      BlockType = "code"
	BlockRule      BlockType = "rule"
)

// Container blocks hold Children; the others hold Inlines.
func (t BlockType) Container() bool {
	return t == BlockList || t == BlockListItem || t == BlockQuote
}

func (t BlockType) valid() bool {
	switch t {
	case BlockParagraph, BlockHeading, BlockList, BlockListItem, BlockQuote, BlockCode, BlockRule:
		return true
	}
	return false
}

// Format is a set of inline formatting flags.
type Format uint8

const (
	Bold Format = 1 << iota
	Italic
	Underline
	Strikethrough
	Code
)

// Has reports whether all flags in f2 are set.
func (f Format) Has(f2 Format) bool {
	return f&f2 == f2
}

// Placeholder stands in for empty lines when building from markdown so the
// block parser keeps them. Only FlattenMarkdown treats it as empty; in
// plain documents it is ordinary text.
const Placeholder = "\u00a0"

// Document is the in-memory rich-text representation edited by the user.
type Document struct {
	Blocks []*Block `json:"blocks"`
}

// Block is one node of the block tree.
type Block struct {
	Type     BlockType `json:"type"`
	Level    int       `json:"level,omitempty"`    // heading level 1-6
	Ordered  bool      `json:"ordered,omitempty"`  // numbered list
	Language string    `json:"language,omitempty"` // code block info string
	Inlines  []Inline  `json:"inlines,omitempty"`
	Children []*Block  `json:"children,omitempty"`
}

// Inline is a run of text sharing one format and optional link target.
type Inline struct {
	Text   string `json:"text"`
	Format Format `json:"format,omitempty"`
	Link   string `json:"link,omitempty"`
}

// Paragraph returns a paragraph holding text as a single unformatted run.
// Empty text yields an empty paragraph.
func Paragraph(text string) *Block {
	b := &Block{Type: BlockParagraph}
	if text != "" {
		b.Inlines = []Inline{{Text: text}}
	}
	return b
}

// TextContent returns the plain text of the block. Children of container
// blocks are joined with newlines.
func (b *Block) TextContent() string {
	if b == nil {
		return ""
	}
	if b.Type.Container() {
		parts := make([]string, 0, len(b.Children))
		for _, c := range b.Children {
			parts = append(parts, c.TextContent())
		}
		return strings.Join(parts, "\n")
	}
	var sb strings.Builder
	for _, in := range b.Inlines {
		sb.WriteString(in.Text)
	}
	return sb.String()
}

// Flatten converts the document into one line update per top-level block,
// numbered from 1 in document order. Empty blocks are kept and text is
// taken verbatim.
func Flatten(doc *Document) []lines.Update {
	if doc == nil {
		return nil
	}
	out := make([]lines.Update, len(doc.Blocks))
	for i, b := range doc.Blocks {
		out[i] = lines.Update{LineNumber: i + 1, Content: b.TextContent()}
	}
	return out
}

// FlattenMarkdown is Flatten for documents edited in markdown mode, where a
// top-level block holding only the placeholder stands for an empty line.
func FlattenMarkdown(doc *Document) []lines.Update {
	out := Flatten(doc)
	for i := range out {
		if out[i].Content == Placeholder {
			out[i].Content = ""
		}
	}
	return out
}
