// Package gemini implements a council agent on top of the Gemini API. Each
// agent carries a persona and a review focus; the vote comes back as a
// structured JSON object.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/leadscope/lead-qualifier/pkg/council"
	"github.com/leadscope/lead-qualifier/pkg/pipeline/core"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// AgentID identifies this agent in votes, e.g. "skeptic".
	AgentID string

	// Persona is prepended to the review prompt, e.g. "You are a cautious
	// sales-compliance reviewer."
	Persona string

	// Focus narrows what the agent scrutinizes, e.g. "licensing and
	// reputation risk".
	Focus string
}

// Agent implements council.Agent.
type Agent struct {
	client  *genai.Client
	model   string
	id      string
	persona string
	focus   string
}

func New(ctx context.Context, cfg Config) (*Agent, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}
	if strings.TrimSpace(cfg.AgentID) == "" {
		return nil, fmt.Errorf("agent id is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Agent{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		id:      strings.TrimSpace(cfg.AgentID),
		persona: strings.TrimSpace(cfg.Persona),
		focus:   strings.TrimSpace(cfg.Focus),
	}, nil
}

func (a *Agent) ID() string { return a.id }

type voteSchema struct {
	Choice           string   `json:"choice"`
	Confidence       float64  `json:"confidence"`
	Reason           string   `json:"reason"`
	BlockingConcerns []string `json:"blocking_concerns"`
	Concerns         []string `json:"concerns"`
	Recommendations  []string `json:"recommendations"`
}

var voteOutputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"choice":            {Type: genai.TypeString, Enum: []string{"approve", "reject", "abstain"}},
		"confidence":        {Type: genai.TypeNumber},
		"reason":            {Type: genai.TypeString},
		"blocking_concerns": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"concerns":          {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"recommendations":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"choice", "confidence", "reason", "blocking_concerns", "concerns", "recommendations"},
}

// Evaluate reviews one lead and returns the agent's vote. Errors surface to
// the council, which degrades them to abstains.
func (a *Agent) Evaluate(ctx context.Context, rc council.ReviewContext) (council.Vote, error) {
	prompt, err := buildPrompt(a.persona, a.focus, rc)
	if err != nil {
		return council.Vote{}, err
	}

	resp, err := a.client.Models.GenerateContent(
		ctx,
		a.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   voteOutputSchema,
		},
	)
	if err != nil {
		return council.Vote{}, classifyErr(err)
	}

	return parseVote(a.id, resp.Text())
}

// parseVote decodes the structured vote. The error surfaces to the council,
// which degrades the agent to an abstain.
func parseVote(agentID, raw string) (council.Vote, error) {
	var parsed voteSchema
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return council.Vote{}, fmt.Errorf("gemini: parse structured vote: %w", err)
	}

	return council.Vote{
		AgentID:          agentID,
		Choice:           council.Choice(strings.TrimSpace(parsed.Choice)),
		Confidence:       parsed.Confidence,
		Reason:           strings.TrimSpace(parsed.Reason),
		BlockingConcerns: trimAll(parsed.BlockingConcerns),
		Concerns:         trimAll(parsed.Concerns),
		Recommendations:  trimAll(parsed.Recommendations),
	}, nil
}

func buildPrompt(persona, focus string, rc council.ReviewContext) (string, error) {
	material, err := json.MarshalIndent(struct {
		Lead     any `json:"lead"`
		Snapshot any `json:"snapshot"`
		Score    any `json:"score"`
	}{rc.Lead, rc.Snapshot, rc.Score}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal review context: %w", err)
	}

	var b strings.Builder
	if persona != "" {
		b.WriteString(persona)
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimSpace(`
You are reviewing a sales lead that an automated scorer could not decide on.
Judge whether the lead should be pursued.

Return ONLY a single JSON object with these keys:
- choice (string; one of: approve, reject, abstain)
- confidence (number; 0..1)
- reason (string; one sentence)
- blocking_concerns (array of strings; ONLY for problems serious enough to
  stop outreach regardless of the vote, empty otherwise)
- concerns (array of strings)
- recommendations (array of strings)
`))
	if focus != "" {
		fmt.Fprintf(&b, "\n\nPay particular attention to: %s.", focus)
	}
	if rc.Question != "" {
		fmt.Fprintf(&b, "\n\nQuestion under review: %s", rc.Question)
	}
	fmt.Fprintf(&b, "\n\nReview material:\n%s\n", material)
	return b.String(), nil
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &core.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &core.TransientError{Err: err}
	}
	return err
}

func trimAll(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
