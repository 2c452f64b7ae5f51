// Package generation drafts the application documents for a matched job.
package generation

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/llm"
	"github.com/jonathan/freelance-applier/internal/logging"
	"github.com/jonathan/freelance-applier/internal/prompts"
	"github.com/jonathan/freelance-applier/internal/schemas"
	"github.com/jonathan/freelance-applier/internal/types"
)

// DefaultDesiredRate is the minimum hourly rate in USD quoted in documents
const DefaultDesiredRate = "15"

// Options configures a Generator
type Options struct {
	ApplicantName string
	DesiredRate   string
	Tier          llm.ModelTier
}

// Generator drafts cover letters, intro messages and call scripts
type Generator struct {
	client llm.Client
	opts   Options
	log    *zerolog.Logger
}

// NewGenerator creates a Generator
func NewGenerator(client llm.Client, opts Options, logger *zerolog.Logger) *Generator {
	if opts.DesiredRate == "" {
		opts.DesiredRate = DefaultDesiredRate
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	return &Generator{client: client, opts: opts, log: logging.OrNop(logger)}
}

// request is the prompt and response contract of one document kind
type request struct {
	key    string
	schema string
	data   map[string]string
}

func (g *Generator) request(kind types.DocumentKind, posting types.JobPosting, profile string) (request, bool) {
	switch kind {
	case types.KindCoverLetter:
		return request{
			key:    prompts.KeyCoverLetter,
			schema: schemas.CoverLetter,
			data: map[string]string{
				"Profile":        profile,
				"JobDescription": posting.Description,
				"ApplicantName":  g.opts.ApplicantName,
				"DesiredRate":    g.opts.DesiredRate,
			},
		}, true
	case types.KindIntroMessage:
		return request{
			key:    prompts.KeyIntroMessage,
			schema: schemas.CallScript,
			data: map[string]string{
				"Profile":        profile,
				"JobTitle":       posting.Title,
				"SkillsRequired": posting.Skills(),
				"ApplicantName":  g.opts.ApplicantName,
				"DesiredRate":    g.opts.DesiredRate,
			},
		}, true
	case types.KindCallScript:
		return request{
			key:    prompts.KeyCallScript,
			schema: schemas.CallScript,
			data: map[string]string{
				"Profile":        profile,
				"JobDescription": posting.Description,
				"DesiredRate":    g.opts.DesiredRate,
			},
		}, true
	default:
		return request{}, false
	}
}

// Generate drafts one document of the given kind for posting.
func (g *Generator) Generate(ctx context.Context, kind types.DocumentKind, posting types.JobPosting, profile string) (string, error) {
	req, ok := g.request(kind, posting, profile)
	if !ok {
		return "", &GenerationError{Kind: kind, JobURL: posting.SourceURL, Message: "unsupported kind", Cause: ErrUnknownKind}
	}

	prompt, err := prompts.Render(prompts.GenerationFile, req.key, req.data)
	if err != nil {
		return "", &GenerationError{Kind: kind, JobURL: posting.SourceURL, Message: "failed to render prompt", Cause: err}
	}

	resp, err := g.client.GenerateJSON(ctx, prompt, g.opts.Tier)
	if err != nil {
		return "", &GenerationError{Kind: kind, JobURL: posting.SourceURL, Message: "LLM call failed", Cause: err}
	}
	resp = llm.CleanJSONBlock(resp)

	var text string
	if req.schema == schemas.CoverLetter {
		var out types.CoverLetter
		err = schemas.Decode(req.schema, resp, &out)
		text = out.Letter
	} else {
		var out types.CallScript
		err = schemas.Decode(req.schema, resp, &out)
		text = out.Script
	}
	if err != nil {
		return "", &GenerationError{Kind: kind, JobURL: posting.SourceURL, Message: "malformed response", Cause: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &GenerationError{Kind: kind, JobURL: posting.SourceURL, Message: "empty document"}
	}

	g.log.Debug().Str("kind", string(kind)).Str("job_url", posting.SourceURL).Int("chars", len(text)).Msg("generated document")
	return text, nil
}
