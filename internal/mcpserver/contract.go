package mcpserver

import (
	"fmt"

	"github.com/starford/mindmaps/internal/richtext"
)

// MapFormatURI is the resource URI of the document format description.
const MapFormatURI = "mindmaps://map-format"

// mapFormatContract describes the JSON document stored for each mind map so
// LLM clients produce data the service accepts. %d is the description limit.
const mapFormatContract = `# Mind Map Document Format

A mind map is stored as a JSON text. The service keeps the text exactly as
sent; it only checks that it parses and that descriptions are not too long.

## Structure

` + "```" + `json
{
  "name": "Central topic",
  "description": "Optional <b>rich</b> text",
  "children": [
    {"name": "Branch", "children": [{"name": "Leaf"}]},
    {"name": "Another branch", "description": "Notes<br>on two lines"}
  ]
}
` + "```" + `

## Rules

1. **Every node is a JSON object.** All keys are optional.
2. **` + "`" + `name` + "`" + `** is the label shown on the node.
3. **` + "`" + `description` + "`" + `** is at most %d characters.
4. **` + "`" + `children` + "`" + `** is an array of nodes, in display order.
5. **Rich text** in descriptions may use only these tags, without attributes:
   %s. Anything else is removed when the map is displayed.
6. Extra keys (colours, positions, ids) are allowed and stored untouched.
7. The ` + "`" + `data` + "`" + ` argument of create_map is this document serialized as a string.
`

// MapFormatContract returns the format description for the given limit.
func MapFormatContract(maxDescriptionLength int) string {
	tags := ""
	for i, t := range richtext.AllowedTags {
		if i > 0 {
			tags += ", "
		}
		tags += "<" + t + ">"
	}
	return fmt.Sprintf(mapFormatContract, maxDescriptionLength, tags)
}
