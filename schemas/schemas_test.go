package schemas

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schemaFiles = []string{
	"job_posting.schema.json",
	"job_postings.schema.json",
	"job_scores.schema.json",
	"job_score.schema.json",
	"cover_letter.schema.json",
	"call_script.schema.json",
}

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, schemaFile := range schemaFiles {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := Files.ReadFile(schemaFile)
			require.NoError(t, err, "should be able to read schema file")

			var v map[string]any
			require.NoError(t, json.Unmarshal(data, &v), "schema file should be valid JSON")
			assert.Equal(t, schemaFile, v["$id"])
			assert.Equal(t, "object", v["type"])
		})
	}
}

func TestEmbeddedFiles_Complete(t *testing.T) {
	matches, err := fs.Glob(Files, "*.schema.json")
	require.NoError(t, err)
	assert.ElementsMatch(t, schemaFiles, matches)
}
