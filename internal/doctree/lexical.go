package doctree

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Lexical text format bits.
const (
	lexicalBold          = 1
	lexicalItalic        = 2
	lexicalStrikethrough = 4
	lexicalUnderline     = 8
	lexicalCode          = 16
)

type lexicalNode struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Format   json.RawMessage `json:"format"`
	Tag      string          `json:"tag"`
	ListType string          `json:"listType"`
	URL      string          `json:"url"`
	Language string          `json:"language"`
	Children []lexicalNode   `json:"children"`
}

// textFormat reads the numeric format of a text node. Element nodes carry a
// string alignment in the same field, which is ignored.
func (n lexicalNode) textFormat() Format {
	v, err := strconv.Atoi(strings.TrimSpace(string(n.Format)))
	if err != nil {
		return 0
	}
	var f Format
	if v&lexicalBold != 0 {
		f |= Bold
	}
	if v&lexicalItalic != 0 {
		f |= Italic
	}
	if v&lexicalStrikethrough != 0 {
		f |= Strikethrough
	}
	if v&lexicalUnderline != 0 {
		f |= Underline
	}
	if v&lexicalCode != 0 {
		f |= Code
	}
	return f
}

func parseLexical(raw json.RawMessage) (*Document, error) {
	var root lexicalNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("decode lexical state: %w", err)
	}
	if root.Type != "" && root.Type != "root" {
		return nil, fmt.Errorf("%w: lexical root has type %q", ErrInvalid, root.Type)
	}

	doc := &Document{Blocks: make([]*Block, 0, len(root.Children))}
	for i, child := range root.Children {
		b, err := lexicalBlock(child)
		if err != nil {
			return nil, fmt.Errorf("root.children[%d]: %w", i, err)
		}
		doc.Blocks = append(doc.Blocks, b)
	}
	return doc, nil
}

func lexicalBlock(n lexicalNode) (*Block, error) {
	switch n.Type {
	case "paragraph":
		return &Block{Type: BlockParagraph, Inlines: lexicalInlines(n.Children, "")}, nil
	case "heading":
		level := 1
		if len(n.Tag) == 2 && n.Tag[0] == 'h' && n.Tag[1] >= '1' && n.Tag[1] <= '6' {
			level = int(n.Tag[1] - '0')
		}
		return &Block{Type: BlockHeading, Level: level, Inlines: lexicalInlines(n.Children, "")}, nil
	case "quote":
		return &Block{Type: BlockQuote, Children: []*Block{{Type: BlockParagraph, Inlines: lexicalInlines(n.Children, "")}}}, nil
	case "code":
		return &Block{Type: BlockCode, Language: n.Language, Inlines: lexicalInlines(n.Children, "")}, nil
	case "horizontalrule":
		return &Block{Type: BlockRule}, nil
	case "list":
		list := &Block{Type: BlockList, Ordered: n.ListType == "number"}
		for i, c := range n.Children {
			item, err := lexicalListItem(c)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			list.Children = append(list.Children, item)
		}
		return list, nil
	}
	return nil, fmt.Errorf("%w: unsupported lexical node %q", ErrInvalid, n.Type)
}

// lexicalListItem maps a Lexical listitem, whose children mix inline nodes
// and nested lists, onto a listitem block with paragraph and list children.
func lexicalListItem(n lexicalNode) (*Block, error) {
	if n.Type != "listitem" {
		return nil, fmt.Errorf("%w: list child of type %q", ErrInvalid, n.Type)
	}
	item := &Block{Type: BlockListItem}
	var pending []lexicalNode
	flush := func() {
		if len(pending) > 0 {
			item.Children = append(item.Children, &Block{Type: BlockParagraph, Inlines: lexicalInlines(pending, "")})
			pending = nil
		}
	}
	for _, c := range n.Children {
		if c.Type == "list" {
			flush()
			nested, err := lexicalBlock(c)
			if err != nil {
				return nil, err
			}
			item.Children = append(item.Children, nested)
			continue
		}
		pending = append(pending, c)
	}
	flush()
	return item, nil
}

func lexicalInlines(nodes []lexicalNode, link string) []Inline {
	var out []Inline
	for _, n := range nodes {
		switch n.Type {
		case "text", "code-highlight":
			if n.Text != "" {
				out = append(out, Inline{Text: n.Text, Format: n.textFormat(), Link: link})
			}
		case "tab":
			out = append(out, Inline{Text: "\t", Link: link})
		case "linebreak":
			out = append(out, Inline{Text: "\n", Link: link})
		case "link", "autolink":
			out = append(out, lexicalInlines(n.Children, n.URL)...)
		default:
			out = append(out, lexicalInlines(n.Children, link)...)
		}
	}
	return out
}
