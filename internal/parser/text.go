package parser

import (
	"fmt"
	"io"
	"unicode/utf8"
)

const maxTextBytes = 4 * 1024 * 1024

// TextParser handles plain text and markdown files. Content is kept line
// for line so markdown syntax survives for the markdown editor mode.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxTextBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxTextBytes {
		return nil, fmt.Errorf("%s: text exceeds %d bytes", filename, maxTextBytes)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: not valid UTF-8 text", filename)
	}
	// Strip a UTF-8 byte order mark.
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	return SplitLines(string(data)), nil
}
