// Package schemas embeds the JSON Schemas of persisted artifacts.
package schemas

import _ "embed"

// CVDocument is the JSON Schema of a stored CVDocument
//
//go:embed cv_document.schema.json
var CVDocument string
