// Package gemini implements the identity/owner-extraction provider on top of
// the Gemini API with a structured JSON response schema.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/pipeline/core"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// Extractor finds owner and legal-entity name candidates for a business
// using web search. It implements enrich.IdentityExtractor.
type Extractor struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Extractor, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
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
	return &Extractor{client: client, model: strings.TrimSpace(cfg.Model)}, nil
}

type responseSchema struct {
	OwnerName string   `json:"owner_name"`
	LegalName string   `json:"legal_name"`
	AltNames  []string `json:"alt_names"`
}

var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"owner_name": {Type: genai.TypeString},
		"legal_name": {Type: genai.TypeString},
		"alt_names":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"owner_name", "legal_name", "alt_names"},
}

// ExtractIdentity looks up identity candidates for one lead.
func (e *Extractor) ExtractIdentity(ctx context.Context, l lead.Lead) (enrich.IdentitySignals, error) {
	if strings.TrimSpace(l.BusinessName) == "" {
		return enrich.IdentitySignals{}, errors.New("empty business name")
	}

	resp, err := e.client.Models.GenerateContent(
		ctx,
		e.model,
		genai.Text(buildPrompt(l)),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
				{URLContext: &genai.URLContext{}},
			},
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
			ResponseSchema:   outputSchema,
		},
	)
	if err != nil {
		return enrich.IdentitySignals{}, classifyErr(err)
	}

	return parseIdentity(resp.Text())
}

// parseIdentity decodes the structured response. Malformed output is an
// expected failure class at the gateway boundary, so it maps to
// enrich.ErrUnavailable rather than surfacing as a hard error.
func parseIdentity(raw string) (enrich.IdentitySignals, error) {
	var parsed responseSchema
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return enrich.IdentitySignals{}, fmt.Errorf("%w: parse structured json: %v", enrich.ErrUnavailable, err)
	}

	out := enrich.IdentitySignals{
		OwnerName: strings.TrimSpace(parsed.OwnerName),
		LegalName: strings.TrimSpace(parsed.LegalName),
	}
	for _, n := range parsed.AltNames {
		if n = strings.TrimSpace(n); n != "" {
			out.AltNames = append(out.AltNames, n)
		}
	}
	return out, nil
}

func buildPrompt(l lead.Lead) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(`
You are a business-identity research tool. Given a local business, use web
search and URL context to find who owns it and the legal entity it operates
under.

Return ONLY a single JSON object with these keys:
- owner_name (string)
- legal_name (string)
- alt_names (array of strings; other trade names, empty if none)

Rules:
- If you cannot find a field, set it to an empty string (or empty array).
- Do not include extra keys.
- Do not guess: only report names supported by what you find.
`))
	fmt.Fprintf(&b, "\n\nBusiness: %s", l.BusinessName)
	if l.City != "" {
		fmt.Fprintf(&b, "\nLocation: %s %s", l.City, l.Region)
	}
	if l.Website != "" {
		fmt.Fprintf(&b, "\nWebsite: %s", l.Website)
	}
	return b.String()
}

func classifyErr(err error) error {
	// Wrap transient failures so retry layers back off and try again.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &core.TransientError{Err: err}
		}
		return fmt.Errorf("%w: %v", enrich.ErrUnavailable, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &core.TransientError{Err: err}
	}
	return err
}
