package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	w := &lineWriter{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				w.heading(level, textContent(n))
				return
			}

			switch n.Data {
			case "script", "style", "nav", "head", "template":
				return
			case "li":
				if t := textContent(n); t != "" {
					w.add("- " + t)
				}
				return
			case "p", "td", "blockquote", "dt", "dd", "address":
				for _, l := range strings.Split(blockText(n), "\n") {
					w.add(l)
				}
				return
			case "hr", "ul", "ol", "table", "section", "article":
				w.blank()
			}
		}
		if n.Type == html.TextNode {
			// Loose text inside generic containers such as <div>.
			if t := collapseSpace(n.Data); t != "" {
				w.add(t)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "ul", "ol", "table", "section", "article":
				w.blank()
			}
		}
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	walk(root)
	return w.result(), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// textContent returns the whitespace-collapsed text of n.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return collapseSpace(buf.String())
}

// blockText is like textContent but keeps <br> as a line break.
func blockText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)

	parts := strings.Split(buf.String(), "\n")
	for i, p := range parts {
		parts[i] = collapseSpace(p)
	}
	return strings.Join(parts, "\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
