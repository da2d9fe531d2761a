package mindmap

import (
	"strings"

	"github.com/starford/mindmaps/internal/richtext"
)

// OutlineItem is one node of a flattened document.
type OutlineItem struct {
	Depth       int    `json:"depth"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
}

// Outline flattens body into pre-order items. Descriptions are sanitized;
// Text carries the description with all markup removed.
func Outline(body string) ([]OutlineItem, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	items := []OutlineItem{}
	_ = walk(root, 0, func(n node, depth int) error {
		name, _ := n[keyName].(string)
		desc, _ := n[keyDescription].(string)
		items = append(items, OutlineItem{
			Depth:       depth,
			Name:        name,
			Description: richtext.Sanitize(desc),
			Text:        richtext.PlainText(desc),
		})
		return nil
	})
	return items, nil
}

// SearchText returns the plain text of every node name and description,
// space separated. Malformed documents yield an empty string.
func SearchText(body string) string {
	root, err := parse(body)
	if err != nil {
		return ""
	}
	var parts []string
	_ = walk(root, 0, func(n node, _ int) error {
		for _, key := range []string{keyName, keyDescription} {
			s, _ := n[key].(string)
			if t := richtext.PlainText(s); t != "" {
				parts = append(parts, t)
			}
		}
		return nil
	})
	return strings.Join(parts, " ")
}
