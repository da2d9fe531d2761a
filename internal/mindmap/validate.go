// Package mindmap understands the JSON document stored for each mind map.
//
// A document is a tree of nodes. Each node is a JSON object with an optional
// "name", an optional rich-text "description" and an optional "children"
// array of nodes. The stored text is always the client's original bytes;
// this package only inspects it.
package mindmap

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/starford/mindmaps/internal/apperr"
)

// DefaultMaxDescriptionLength bounds a single node description, in characters.
const DefaultMaxDescriptionLength = 5000

const (
	keyName        = "name"
	keyDescription = "description"
	keyChildren    = "children"
)

// Validate parses body and walks the tree depth-first, pre-order. It returns
// apperr.ErrMalformedJSON when body is not JSON and apperr.ErrDescriptionTooLong
// at the first node whose string description exceeds maxLen characters.
// A non-positive maxLen selects DefaultMaxDescriptionLength.
func Validate(body string, maxLen int) error {
	root, err := parse(body)
	if err != nil {
		return err
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxDescriptionLength
	}
	return walk(root, 0, func(n node, _ int) error {
		if d, ok := n[keyDescription].(string); ok && utf8.RuneCountInString(d) > maxLen {
			return apperr.ErrDescriptionTooLong
		}
		return nil
	})
}

type node = map[string]any

func parse(body string) (any, error) {
	var root any
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		return nil, apperr.ErrMalformedJSON
	}
	return root, nil
}

// walk visits v and its descendants pre-order. Values that are not objects
// are skipped, as is a "children" member that is not an array.
func walk(v any, depth int, visit func(n node, depth int) error) error {
	n, ok := v.(node)
	if !ok {
		return nil
	}
	if err := visit(n, depth); err != nil {
		return err
	}
	children, _ := n[keyChildren].([]any)
	for _, c := range children {
		if err := walk(c, depth+1, visit); err != nil {
			return err
		}
	}
	return nil
}
