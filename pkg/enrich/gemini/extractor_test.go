package gemini

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/pipeline/core"
)

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "dial timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name            string
		in              error
		wantTransient   bool
		wantUnavailable bool
	}{
		{name: "nil", in: nil},
		{name: "api_429", in: genai.APIError{Code: 429}, wantTransient: true},
		{name: "api_500", in: genai.APIError{Code: 500}, wantTransient: true},
		{name: "api_503", in: genai.APIError{Code: 503}, wantTransient: true},
		{name: "api_401", in: genai.APIError{Code: 401}, wantUnavailable: true},
		{name: "api_400", in: genai.APIError{Code: 400}, wantUnavailable: true},
		{name: "net_timeout", in: timeoutNetErr{}, wantTransient: true},
		{name: "plain", in: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(tt.in)
			var te *core.TransientError
			if isTransient := errors.As(got, &te); isTransient != tt.wantTransient {
				t.Fatalf("transient=%v want=%v (err=%T %v)", isTransient, tt.wantTransient, got, got)
			}
			if isUnavailable := errors.Is(got, enrich.ErrUnavailable); isUnavailable != tt.wantUnavailable {
				t.Fatalf("unavailable=%v want=%v (err=%T %v)", isUnavailable, tt.wantUnavailable, got, got)
			}
		})
	}
}

func TestParseIdentity(t *testing.T) {
	raw := `{"owner_name":" Jordan Reyes ","legal_name":"Ace Plumbing LLC","alt_names":["Ace Plumbing"," ",""]}`
	got, err := parseIdentity(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := enrich.IdentitySignals{
		OwnerName: "Jordan Reyes",
		LegalName: "Ace Plumbing LLC",
		AltNames:  []string{"Ace Plumbing"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("identity mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIdentity_MalformedMapsToUnavailable(t *testing.T) {
	_, err := parseIdentity("I could not find anything.")
	if !errors.Is(err, enrich.ErrUnavailable) {
		t.Fatalf("malformed output must map to ErrUnavailable, got %v", err)
	}
}
