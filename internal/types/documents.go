package types

import (
	"errors"
	"strings"
	"time"
)

// DocumentKind selects which application document to generate
type DocumentKind string

const (
	// KindCoverLetter is the proposal cover letter
	KindCoverLetter DocumentKind = "cover_letter"
	// KindIntroMessage is the short introductory message to the client
	KindIntroMessage DocumentKind = "intro_message"
	// KindCallScript is the interview call preparation script
	KindCallScript DocumentKind = "call_script"
)

// DocumentKinds lists every supported kind.
func DocumentKinds() []DocumentKind {
	return []DocumentKind{KindCoverLetter, KindIntroMessage, KindCallScript}
}

// CoverLetter is the LLM response for cover letter generation
type CoverLetter struct {
	Letter string `json:"letter"`
}

// CallScript is the LLM response for intro message and call script generation
type CallScript struct {
	Script string `json:"script"`
}

// GeneratedContent holds the documents drafted for one job in one processing cycle
type GeneratedContent struct {
	Job          JobPosting `json:"job"`
	CoverLetter  string     `json:"cover_letter"`
	IntroMessage string     `json:"intro_message"`
	GeneratedAt  time.Time  `json:"generated_at"`
}

// Validate requires both documents before the content may be persisted.
func (g *GeneratedContent) Validate() error {
	if strings.TrimSpace(g.CoverLetter) == "" {
		return errors.New("cover letter is empty")
	}
	if strings.TrimSpace(g.IntroMessage) == "" {
		return errors.New("intro message is empty")
	}
	return nil
}
