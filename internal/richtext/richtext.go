// Package richtext cleans user-supplied node descriptions.
//
// Descriptions may carry a small set of inline formatting tags. Anything else
// is stripped, keeping the text content, including that of script and style.
package richtext

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/mindmaps/internal/apperr"
)

// AllowedTags lists the only elements that survive Sanitize. None of them
// keep attributes.
var AllowedTags = []string{"b", "i", "u", "s", "strong", "em", "br"}

var (
	inline = bluemonday.NewPolicy().AllowElements(AllowedTags...).AllowElementsContent("script", "style")
	strict = bluemonday.StrictPolicy().AllowElementsContent("script", "style")
)

// Sanitize returns s with every element outside AllowedTags removed and every
// attribute dropped. The result is trimmed.
func Sanitize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return strings.TrimSpace(inline.Sanitize(s))
}

// SanitizeLimited trims s, rejects it when longer than maxLen runes and
// otherwise sanitizes it.
func SanitizeLimited(s string, maxLen int) (string, error) {
	s = strings.TrimSpace(s)
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		return "", apperr.ErrDescriptionTooLong
	}
	return Sanitize(s), nil
}

// PlainText strips every tag from s. The result stays entity-escaped, so
// encoded markup in s never comes back as a tag.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strict.Sanitize(s))
}
