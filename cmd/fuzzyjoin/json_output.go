package main

import (
	"encoding/json"
	"io"
)

// writeJSON encodes v as indented JSON without HTML escaping, so paths and
// titles print as they are stored.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
