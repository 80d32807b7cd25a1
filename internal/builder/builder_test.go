package builder

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func testBuilder() *Builder {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func linesOf(contents ...string) []lines.Line {
	out := make([]lines.Line, len(contents))
	for i, c := range contents {
		out[i] = lines.Line{LineNumber: i + 1, Content: c}
	}
	return out
}

func flattened(doc *doctree.Document) []string {
	var out []string
	for _, u := range doctree.Flatten(doc) {
		out = append(out, u.Content)
	}
	return out
}

func assertContents(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d lines %q, got %d lines %q", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i+1, want[i], got[i])
		}
	}
}

func TestPlain_RoundTrip(t *testing.T) {
	doc, mode := testBuilder().Build(linesOf("A", "", "B"), ModePlain)
	if mode != ModePlain {
		t.Errorf("expected plain mode, got %s", mode)
	}
	updates := doctree.Flatten(doc)
	if len(updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(updates))
	}
	for i, want := range []string{"A", "", "B"} {
		if updates[i].LineNumber != i+1 || updates[i].Content != want {
			t.Errorf("update %d: expected {%d %q}, got %+v", i, i+1, want, updates[i])
		}
	}
}

func TestPlain_KeepsMarkdownSyntaxLiteral(t *testing.T) {
	doc := Plain([]string{"## Experience", "**bold**"})
	for _, b := range doc.Blocks {
		if b.Type != doctree.BlockParagraph {
			t.Errorf("expected paragraph, got %s", b.Type)
		}
	}
	assertContents(t, flattened(doc), []string{"## Experience", "**bold**"})
}

func TestBuild_EmptyInput(t *testing.T) {
	for _, mode := range []Mode{ModePlain, ModeMarkdown} {
		doc, _ := testBuilder().Build(nil, mode)
		if len(doc.Blocks) != 1 {
			t.Fatalf("%s: expected a single block, got %d", mode, len(doc.Blocks))
		}
		if doc.Blocks[0].Type != doctree.BlockParagraph || doc.Blocks[0].TextContent() != "" {
			t.Errorf("%s: expected an empty paragraph, got %+v", mode, doc.Blocks[0])
		}
	}
}

func TestMarkdown_Heading(t *testing.T) {
	doc, mode := testBuilder().Build(linesOf("## Experience"), ModeMarkdown)
	if mode != ModeMarkdown {
		t.Fatalf("expected markdown mode, got %s", mode)
	}
	if len(doc.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(doc.Blocks))
	}
	h := doc.Blocks[0]
	if h.Type != doctree.BlockHeading || h.Level != 2 {
		t.Errorf("expected level 2 heading, got %s level %d", h.Type, h.Level)
	}
	if h.TextContent() != "Experience" {
		t.Errorf("expected %q, got %q", "Experience", h.TextContent())
	}
}

func TestMarkdown_EmptyLineFlattensToEmpty(t *testing.T) {
	doc, _ := testBuilder().Build(linesOf("## Experience", "", "Acme Corp", "   ", "Engineer"), ModeMarkdown)
	got := flattened(doc)
	assertContents(t, got, []string{"Experience", "", "Acme Corp", "", "Engineer"})
	for _, c := range got {
		if strings.Contains(c, doctree.Placeholder) {
			t.Errorf("placeholder leaked into %q", c)
		}
	}
}

func TestMarkdown_SingleEmptyLine(t *testing.T) {
	doc, _ := testBuilder().Build(linesOf(""), ModeMarkdown)
	assertContents(t, flattened(doc), []string{""})
}

func TestMarkdown_Emphasis(t *testing.T) {
	doc, _ := testBuilder().Build(linesOf("Led **platform** and *infra* ~~legacy~~ `go`"), ModeMarkdown)
	if len(doc.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(doc.Blocks))
	}
	formats := map[string]doctree.Format{}
	for _, in := range doc.Blocks[0].Inlines {
		formats[in.Text] = in.Format
	}
	tests := []struct {
		text string
		want doctree.Format
	}{
		{"platform", doctree.Bold},
		{"infra", doctree.Italic},
		{"legacy", doctree.Strikethrough},
		{"go", doctree.Code},
	}
	for _, tc := range tests {
		f, ok := formats[tc.text]
		if !ok {
			t.Errorf("missing inline %q in %+v", tc.text, doc.Blocks[0].Inlines)
			continue
		}
		if f != tc.want {
			t.Errorf("inline %q: expected format %v, got %v", tc.text, tc.want, f)
		}
	}
	assertContents(t, flattened(doc), []string{"Led platform and infra legacy go"})
}

func TestMarkdown_Lists(t *testing.T) {
	doc, _ := testBuilder().Build(linesOf("Skills", "- Go", "- Rust", "", "1. First"), ModeMarkdown)
	if len(doc.Blocks) < 3 {
		t.Fatalf("expected at least 3 blocks, got %d", len(doc.Blocks))
	}
	if doc.Blocks[0].Type != doctree.BlockParagraph {
		t.Errorf("expected paragraph first, got %s", doc.Blocks[0].Type)
	}
	list := doc.Blocks[1]
	if list.Type != doctree.BlockList || list.Ordered {
		t.Fatalf("expected bullet list, got %s ordered=%v", list.Type, list.Ordered)
	}
	if len(list.Children) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list.Children))
	}
	if list.TextContent() != "Go\nRust" {
		t.Errorf("expected %q, got %q", "Go\nRust", list.TextContent())
	}

	var ordered *doctree.Block
	for _, b := range doc.Blocks[2:] {
		if b.Type == doctree.BlockList {
			ordered = b
		}
	}
	if ordered == nil || !ordered.Ordered {
		t.Fatalf("expected an ordered list in %+v", doc.Blocks[2:])
	}
	if ordered.TextContent() != "First" {
		t.Errorf("expected %q, got %q", "First", ordered.TextContent())
	}
}

func TestMarkdown_BlankLineAfterList(t *testing.T) {
	doc, mode := testBuilder().Build(linesOf("- did a", "- did b", "   ", "**Skills**", "Go, *Rust*", "Team Lead", "---"), ModeMarkdown)
	if mode != ModeMarkdown {
		t.Fatalf("expected markdown mode, got %s", mode)
	}
	wantTypes := []doctree.BlockType{
		doctree.BlockList, doctree.BlockParagraph, doctree.BlockParagraph,
		doctree.BlockParagraph, doctree.BlockParagraph, doctree.BlockRule,
	}
	if len(doc.Blocks) != len(wantTypes) {
		t.Fatalf("expected %d blocks, got %d: %q", len(wantTypes), len(doc.Blocks), flattened(doc))
	}
	for i, want := range wantTypes {
		if doc.Blocks[i].Type != want {
			t.Errorf("block %d: expected %s, got %s", i, want, doc.Blocks[i].Type)
		}
	}
	assertContents(t, flattened(doc), []string{"did a\ndid b", "", "Skills", "Go, Rust", "Team Lead", ""})
}

func TestMarkdown_BlankLineBetweenItems(t *testing.T) {
	doc, _ := testBuilder().Build(linesOf("- Go", "", "- Rust", "", "Tail"), ModeMarkdown)
	assertContents(t, flattened(doc), []string{"Go", "", "Rust", "", "Tail"})
}

func TestMarkdown_InlineHTMLKeptAsText(t *testing.T) {
	doc, mode := testBuilder().Build(linesOf("Led <b>team</b> of 5"), ModeMarkdown)
	if mode != ModeMarkdown {
		t.Fatalf("expected markdown mode, got %s", mode)
	}
	assertContents(t, flattened(doc), []string{"Led <b>team</b> of 5"})
}

func TestMarkdown_Links(t *testing.T) {
	doc, _ := testBuilder().Build(linesOf("[Portfolio](https://jane.dev)", "see https://github.com/jane"), ModeMarkdown)
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}
	first := doc.Blocks[0].Inlines
	if len(first) != 1 || first[0].Text != "Portfolio" || first[0].Link != "https://jane.dev" {
		t.Errorf("unexpected link inlines %+v", first)
	}
	var auto *doctree.Inline
	for i, in := range doc.Blocks[1].Inlines {
		if in.Link != "" {
			auto = &doc.Blocks[1].Inlines[i]
		}
	}
	if auto == nil || auto.Link != "https://github.com/jane" {
		t.Errorf("expected autolink, got %+v", doc.Blocks[1].Inlines)
	}
	assertContents(t, flattened(doc), []string{"Portfolio", "see https://github.com/jane"})
}

func TestMarkdown_CodeFenceDropsPlaceholder(t *testing.T) {
	doc, _ := testBuilder().Build(linesOf("```go", "a := 1", "", "b := 2", "```"), ModeMarkdown)
	if len(doc.Blocks) != 1 || doc.Blocks[0].Type != doctree.BlockCode {
		t.Fatalf("expected a single code block, got %+v", doc.Blocks)
	}
	if doc.Blocks[0].Language != "go" {
		t.Errorf("expected language go, got %q", doc.Blocks[0].Language)
	}
	if got := doc.Blocks[0].TextContent(); got != "a := 1\n\nb := 2" {
		t.Errorf("unexpected code text %q", got)
	}
}

func TestBuild_InvalidUTF8FallsBackToPlain(t *testing.T) {
	ls := linesOf("## Experience", "bad \xff byte")
	doc, mode := testBuilder().Build(ls, ModeMarkdown)
	if mode != ModePlain {
		t.Errorf("expected fallback to plain, got %s", mode)
	}
	assertContents(t, flattened(doc), []string{"## Experience", "bad \xff byte"})
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModePlain, false},
		{"plain", ModePlain, false},
		{"Markdown", ModeMarkdown, false},
		{"rich", "", true},
	}
	for _, tc := range tests {
		got, err := ParseMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRoundTrip_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	b := testBuilder()

	properties.Property("plain mode preserves every line", prop.ForAll(
		func(contents []string) bool {
			doc, _ := b.Build(linesOf(contents...), ModePlain)
			got := flattened(doc)
			if len(got) != len(contents) {
				return false
			}
			for i := range contents {
				if got[i] != contents[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneGenOf(
			gen.AnyString(),
			gen.OneConstOf(doctree.Placeholder, " ", "   ", "\t", "", " "+doctree.Placeholder+" "),
		)).SuchThat(func(v []string) bool { return len(v) > 0 }),
	))

	properties.Property("markdown mode preserves lines without markup", prop.ForAll(
		func(contents []string) bool {
			doc, _ := b.Build(linesOf(contents...), ModeMarkdown)
			got := flattened(doc)
			if len(got) != len(contents) {
				return false
			}
			for i := range contents {
				if got[i] != contents[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()).SuchThat(func(v []string) bool { return len(v) > 0 }),
	))

	properties.TestingRun(t)
}
