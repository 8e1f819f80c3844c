// Package output renders analyses and plan comparisons as text or JSON.
package output

import (
	"encoding/json"
	"io"
)

func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
