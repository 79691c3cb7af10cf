// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"io"
	"os"
)

// writeDocument writes the exported sing-box config to stdout as indented
// JSON, matching the shape spec.md §6 describes for the produced config.
func writeDocument(doc map[string]any) error {
	return writeDocumentTo(os.Stdout, doc)
}

func writeDocumentTo(w io.Writer, doc map[string]any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
