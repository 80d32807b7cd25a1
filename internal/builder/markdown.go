package builder

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// newMarkdown returns the goldmark instance used for markdown mode. Setext
// headings are disabled: a "---" line under text stays a rule instead of
// folding the lines above it into one heading.
func newMarkdown() goldmark.Markdown {
	setext := reflect.TypeOf(parser.NewSetextHeadingParser())
	var blocks []util.PrioritizedValue
	for _, v := range parser.DefaultBlockParsers() {
		if reflect.TypeOf(v.Value) != setext {
			blocks = append(blocks, v)
		}
	}
	p := parser.NewParser(
		parser.WithBlockParsers(blocks...),
		parser.WithInlineParsers(parser.DefaultInlineParsers()...),
		parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
	)
	return goldmark.New(
		goldmark.WithParser(p),
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	)
}

// joinForMarkdown joins line contents with newlines, substituting the
// placeholder for empty or whitespace-only lines so the block parser does
// not collapse them. Outside fenced code the placeholder is set off by
// blank lines, which ends any open list or quote and leaves it as a
// top-level paragraph of its own.
func joinForMarkdown(contents []string) string {
	var sb strings.Builder
	fence := ""
	for i, c := range contents {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if strings.TrimSpace(c) == "" {
			if fence != "" {
				sb.WriteString(doctree.Placeholder)
			} else {
				sb.WriteString("\n" + doctree.Placeholder + "\n")
			}
			continue
		}
		fence = trackFence(fence, c)
		sb.WriteString(c)
	}
	return sb.String()
}

// trackFence returns the fence marker open after line, "" when none.
func trackFence(open, line string) string {
	t := strings.TrimLeft(line, " ")
	if len(line)-len(t) > 3 {
		return open
	}
	if open != "" {
		if strings.HasPrefix(t, open) && strings.Trim(t, open[:1]+" \t") == "" {
			return ""
		}
		return open
	}
	for _, ch := range []string{"`", "~"} {
		n := len(t) - len(strings.TrimLeft(t, ch))
		if n >= 3 {
			return strings.Repeat(ch, n)
		}
	}
	return ""
}

// Markdown parses the joined line contents into a block tree. Headings,
// lists, emphasis, strikethrough, links and code are recognized.
// Paragraph lines are split at line breaks so each source line stays its
// own top-level paragraph where markdown allows it.
func Markdown(md goldmark.Markdown, contents []string) (*doctree.Document, error) {
	if len(contents) == 0 {
		return emptyDocument(), nil
	}
	joined := joinForMarkdown(contents)
	if !utf8.ValidString(joined) {
		return nil, fmt.Errorf("markdown: content is not valid UTF-8")
	}

	src := []byte(joined)
	root := md.Parser().Parse(text.NewReader(src))

	w := &walker{src: src}
	var blocks []*doctree.Block
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = append(blocks, w.block(n, true)...)
	}
	if len(blocks) == 0 {
		return emptyDocument(), nil
	}
	return &doctree.Document{Blocks: blocks}, nil
}

type walker struct {
	src []byte
}

// block converts one goldmark block node. Paragraphs may expand into
// several blocks, one per source line. Inside containers, placeholder-only
// lines are dropped since they were absorbed by lazy continuation.
func (w *walker) block(n ast.Node, top bool) []*doctree.Block {
	switch node := n.(type) {
	case *ast.Heading:
		return []*doctree.Block{{
			Type:    doctree.BlockHeading,
			Level:   node.Level,
			Inlines: joinSegments(w.inlineSegments(node)),
		}}

	case *ast.Paragraph, *ast.TextBlock:
		var out []*doctree.Block
		for _, seg := range w.inlineSegments(node) {
			if isPlaceholder(seg) {
				if top {
					out = append(out, doctree.Paragraph(""))
				}
				continue
			}
			out = append(out, &doctree.Block{Type: doctree.BlockParagraph, Inlines: seg})
		}
		return out

	case *ast.List:
		list := &doctree.Block{Type: doctree.BlockList, Ordered: node.IsOrdered()}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			item := &doctree.Block{Type: doctree.BlockListItem}
			for cc := c.FirstChild(); cc != nil; cc = cc.NextSibling() {
				item.Children = append(item.Children, w.block(cc, false)...)
			}
			list.Children = append(list.Children, item)
		}
		return []*doctree.Block{list}

	case *ast.Blockquote:
		quote := &doctree.Block{Type: doctree.BlockQuote}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			quote.Children = append(quote.Children, w.block(c, false)...)
		}
		return []*doctree.Block{quote}

	case *ast.FencedCodeBlock:
		return []*doctree.Block{{
			Type:     doctree.BlockCode,
			Language: string(node.Language(w.src)),
			Inlines:  textInline(w.rawLines(node)),
		}}

	case *ast.CodeBlock:
		return []*doctree.Block{{Type: doctree.BlockCode, Inlines: textInline(w.rawLines(node))}}

	case *ast.ThematicBreak:
		return []*doctree.Block{{Type: doctree.BlockRule}}

	default:
		// HTML blocks and anything unrecognized keep their raw text.
		return []*doctree.Block{{Type: doctree.BlockParagraph, Inlines: textInline(w.rawLines(n))}}
	}
}

// rawLines returns the verbatim lines of a leaf block with placeholders
// turned back into empty lines.
func (w *walker) rawLines(n ast.Node) string {
	segs := n.Lines()
	parts := make([]string, 0, segs.Len())
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		line := strings.TrimRight(string(seg.Value(w.src)), "\r\n")
		if line == doctree.Placeholder {
			line = ""
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}

// inlineSegments flattens the inline children of n into runs, starting a
// new segment at every soft or hard line break.
func (w *walker) inlineSegments(n ast.Node) [][]doctree.Inline {
	segs := [][]doctree.Inline{nil}
	var walk func(n ast.Node, f doctree.Format, link string)
	emit := func(s string, f doctree.Format, link string) {
		if s == "" {
			return
		}
		cur := &segs[len(segs)-1]
		if k := len(*cur); k > 0 && (*cur)[k-1].Format == f && (*cur)[k-1].Link == link {
			(*cur)[k-1].Text += s
			return
		}
		*cur = append(*cur, doctree.Inline{Text: s, Format: f, Link: link})
	}
	walk = func(n ast.Node, f doctree.Format, link string) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				emit(string(node.Segment.Value(w.src)), f, link)
				if node.SoftLineBreak() || node.HardLineBreak() {
					segs = append(segs, nil)
				}
			case *ast.String:
				emit(string(node.Value), f, link)
			case *ast.CodeSpan:
				walk(node, f|doctree.Code, link)
			case *ast.Emphasis:
				if node.Level >= 2 {
					walk(node, f|doctree.Bold, link)
				} else {
					walk(node, f|doctree.Italic, link)
				}
			case *extast.Strikethrough:
				walk(node, f|doctree.Strikethrough, link)
			case *ast.Link:
				walk(node, f, string(node.Destination))
			case *ast.AutoLink:
				emit(string(node.Label(w.src)), f, string(node.URL(w.src)))
			case *ast.RawHTML:
				var buf bytes.Buffer
				for i := 0; i < node.Segments.Len(); i++ {
					seg := node.Segments.At(i)
					buf.Write(seg.Value(w.src))
				}
				emit(buf.String(), f, link)
			default:
				walk(node, f, link)
			}
		}
	}
	walk(n, 0, "")

	// A trailing break leaves an empty final segment.
	if len(segs) > 1 && len(segs[len(segs)-1]) == 0 {
		segs = segs[:len(segs)-1]
	}
	return segs
}

func isPlaceholder(seg []doctree.Inline) bool {
	var sb strings.Builder
	for _, in := range seg {
		sb.WriteString(in.Text)
	}
	// TrimSpace would also strip the placeholder itself.
	s := strings.Trim(sb.String(), " \t")
	return s == "" || s == doctree.Placeholder
}

func joinSegments(segs [][]doctree.Inline) []doctree.Inline {
	var out []doctree.Inline
	for i, seg := range segs {
		if i > 0 {
			out = append(out, doctree.Inline{Text: "\n"})
		}
		out = append(out, seg...)
	}
	return out
}

func textInline(s string) []doctree.Inline {
	if s == "" {
		return nil
	}
	return []doctree.Inline{{Text: s}}
}

func emptyDocument() *doctree.Document {
	return &doctree.Document{Blocks: []*doctree.Block{doctree.Paragraph("")}}
}
