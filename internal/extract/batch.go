package extract

import (
	"strings"

	"github.com/dgallion1/resumedit/internal/lines"
)

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	// Roughly 0.75 tokens per word for English text.
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// Batches splits ls into runs whose estimated size stays under maxTokens.
// A batch is cut at its last blank line when possible so entries are not
// split across batches. A single oversized entry still forms one batch.
func Batches(ls []lines.Line, maxTokens int) [][]lines.Line {
	var out [][]lines.Line
	start, size, lastBlank := 0, 0, -1
	for i, l := range ls {
		t := EstimateTokens(l.Content) + 2 // line number prefix
		if size+t > maxTokens && i > start {
			cut := i
			if lastBlank > start {
				cut = lastBlank
			}
			out = append(out, ls[start:cut])
			start = cut
			size = 0
			for _, r := range ls[start:i] {
				size += EstimateTokens(r.Content) + 2
			}
			lastBlank = -1
		}
		if strings.TrimSpace(l.Content) == "" {
			lastBlank = i
		}
		size += t
	}
	if start < len(ls) {
		out = append(out, ls[start:])
	}
	return out
}
