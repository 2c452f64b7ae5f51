package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoredJob_IsMatch(t *testing.T) {
	assert.True(t, ScoredJob{Score: 7}.IsMatch(7))
	assert.True(t, ScoredJob{Score: 10}.IsMatch(7))
	assert.False(t, ScoredJob{Score: 6}.IsMatch(7))
}

func TestValidScore(t *testing.T) {
	assert.False(t, ValidScore(0))
	assert.True(t, ValidScore(MinScore))
	assert.True(t, ValidScore(MaxScore))
	assert.False(t, ValidScore(11))
}

func TestGeneratedContent_Validate(t *testing.T) {
	ok := GeneratedContent{CoverLetter: "Dear client", IntroMessage: "Hi"}
	assert.NoError(t, ok.Validate())

	noLetter := GeneratedContent{CoverLetter: "  \n", IntroMessage: "Hi"}
	assert.ErrorContains(t, noLetter.Validate(), "cover letter")

	noIntro := GeneratedContent{CoverLetter: "Dear client"}
	assert.ErrorContains(t, noIntro.Validate(), "intro message")
}

func TestDocumentKinds(t *testing.T) {
	assert.Equal(t, []DocumentKind{KindCoverLetter, KindIntroMessage, KindCallScript}, DocumentKinds())
}
