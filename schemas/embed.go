// Package schemas holds the JSON Schemas for the structured LLM responses and
// job files exchanged by the pipeline.
package schemas

import "embed"

// Files contains every *.schema.json in this directory.
//
//go:embed *.schema.json
var Files embed.FS
