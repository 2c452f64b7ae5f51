package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	clearCache()

	prompt, err := Get(ScoringFile, KeyScoreJobs)
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "score from 1 to 10")
}

func TestGet_InvalidFile(t *testing.T) {
	clearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	clearCache()

	_, err := Get(GenerationFile, "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, your rate is ${{.DesiredRate}}!"
	data := map[string]string{
		"Name":        "Alice",
		"DesiredRate": "15",
	}

	assert.Equal(t, "Hello Alice, your rate is $15!", Format(template, data))
}

func TestFormat_ValueContainingPlaceholder(t *testing.T) {
	// substituted values are not expanded again
	result := Format("{{.A}} {{.B}}", map[string]string{"A": "{{.B}}", "B": "x"})
	assert.Equal(t, "{{.B}} x", result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"

	assert.Equal(t, template, Format(template, map[string]string{}))
}

func TestMissing(t *testing.T) {
	missing := Missing("{{.Profile}} {{.Jobs}} {{.Profile}} {{.DesiredRate}}", map[string]string{"Jobs": "[]"})
	assert.Equal(t, []string{"DesiredRate", "Profile"}, missing)
}

func TestRender_MissingValue(t *testing.T) {
	clearCache()

	_, err := Render(ScoringFile, KeyScoreJobs, map[string]string{"Profile": "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DesiredRate")
	assert.Contains(t, err.Error(), "Jobs")
}

func TestRender_AllTemplatesResolve(t *testing.T) {
	clearCache()

	data := map[string]string{
		"Profile":        "Go developer",
		"DesiredRate":    "15",
		"Jobs":           "[]",
		"JobDescription": "Build an API",
		"ApplicantName":  "Sam",
		"JobTitle":       "Backend dev",
		"SkillsRequired": "Go, SQL",
	}

	for _, tc := range []struct{ file, key string }{
		{ScoringFile, KeyScoreJobs},
		{GenerationFile, KeyCoverLetter},
		{GenerationFile, KeyIntroMessage},
		{GenerationFile, KeyCallScript},
		{ScrapingFile, KeyExtractJobs},
	} {
		t.Run(tc.key, func(t *testing.T) {
			rendered, err := Render(tc.file, tc.key, data)
			require.NoError(t, err)
			assert.NotContains(t, rendered, "{{.")
		})
	}
}

func TestCaching(t *testing.T) {
	clearCache()

	prompt1, err := Get(GenerationFile, KeyCoverLetter)
	require.NoError(t, err)

	prompt2, err := Get(GenerationFile, KeyCoverLetter)
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}

func clearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	cacheMu.Unlock()
}
