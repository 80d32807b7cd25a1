package doctree

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalid is returned for documents that decode but are not well formed.
var ErrInvalid = errors.New("invalid document")

// Marshal serializes a document for persistence through the editor-state endpoints.
func Marshal(doc *Document) ([]byte, error) {
	if doc == nil {
		doc = &Document{}
	}
	if doc.Blocks == nil {
		doc = &Document{Blocks: []*Block{}}
	}
	return json.Marshal(doc)
}

// Parse decodes a serialized document. Both the native layout
// ({"blocks": [...]}) and a Lexical editor state ({"root": {...}}) are accepted.
func Parse(data []byte) (*Document, error) {
	var probe struct {
		Root   json.RawMessage `json:"root"`
		Blocks json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if len(probe.Root) > 0 && string(probe.Root) != "null" {
		return parseLexical(probe.Root)
	}
	if len(probe.Blocks) == 0 {
		return nil, fmt.Errorf("%w: missing blocks", ErrInvalid)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if err := validateBlocks(doc.Blocks, "blocks"); err != nil {
		return nil, err
	}
	return &doc, nil
}

func validateBlocks(blocks []*Block, path string) error {
	for i, b := range blocks {
		at := fmt.Sprintf("%s[%d]", path, i)
		if b == nil {
			return fmt.Errorf("%w: %s is null", ErrInvalid, at)
		}
		if !b.Type.valid() {
			return fmt.Errorf("%w: %s has unknown type %q", ErrInvalid, at, b.Type)
		}
		if b.Type == BlockHeading && (b.Level < 1 || b.Level > 6) {
			return fmt.Errorf("%w: %s heading level %d out of range", ErrInvalid, at, b.Level)
		}
		if err := validateBlocks(b.Children, at+".children"); err != nil {
			return err
		}
	}
	return nil
}
