package enrich

import (
	"context"

	"github.com/leadscope/lead-qualifier/pkg/lead"
)

// ProviderData carries pre-fetched provider records for one lead, typically
// produced by an external scraping stage and handed to the core as input.
// A nil field means the provider has no data for the lead.
type ProviderData struct {
	Tech        *TechSignals        `json:"tech,omitempty"`
	Visual      *VisualSignals      `json:"visual,omitempty"`
	Performance *PerformanceSignals `json:"performance,omitempty"`
	Directory   *DirectorySignals   `json:"directory,omitempty"`
	Reputation  *ReputationInfo     `json:"reputation,omitempty"`
	Address     *AddressInfo        `json:"address,omitempty"`
	Identity    *IdentitySignals    `json:"identity,omitempty"`
}

// StaticGateway serves pre-fetched provider data keyed by lead id. Missing
// records answer ErrUnavailable, which the assembler absorbs into neutral
// defaults.
type StaticGateway struct {
	data map[string]ProviderData
}

// NewStaticGateway builds a gateway over pre-fetched data.
func NewStaticGateway(data map[string]ProviderData) *StaticGateway {
	if data == nil {
		data = map[string]ProviderData{}
	}
	return &StaticGateway{data: data}
}

func (g *StaticGateway) Tech(_ context.Context, l lead.Lead) (TechSignals, error) {
	if d := g.data[l.ID].Tech; d != nil {
		return *d, nil
	}
	return TechSignals{}, ErrUnavailable
}

func (g *StaticGateway) Visual(_ context.Context, l lead.Lead) (VisualSignals, error) {
	if d := g.data[l.ID].Visual; d != nil {
		return *d, nil
	}
	return VisualSignals{}, ErrUnavailable
}

func (g *StaticGateway) Performance(_ context.Context, l lead.Lead) (PerformanceSignals, error) {
	if d := g.data[l.ID].Performance; d != nil {
		return *d, nil
	}
	return PerformanceSignals{}, ErrUnavailable
}

func (g *StaticGateway) Directory(_ context.Context, l lead.Lead) (DirectorySignals, error) {
	if d := g.data[l.ID].Directory; d != nil {
		return *d, nil
	}
	return DirectorySignals{}, ErrUnavailable
}

func (g *StaticGateway) Reputation(_ context.Context, l lead.Lead) (ReputationInfo, error) {
	if d := g.data[l.ID].Reputation; d != nil {
		return *d, nil
	}
	return ReputationInfo{}, ErrUnavailable
}

func (g *StaticGateway) Address(_ context.Context, l lead.Lead) (AddressInfo, error) {
	if d := g.data[l.ID].Address; d != nil {
		return *d, nil
	}
	return AddressInfo{}, ErrUnavailable
}

func (g *StaticGateway) Identity(_ context.Context, l lead.Lead) (IdentitySignals, error) {
	if d := g.data[l.ID].Identity; d != nil {
		return *d, nil
	}
	return IdentitySignals{}, ErrUnavailable
}

// IdentityExtractor is the subset of the gateway implemented by live
// identity/owner lookup services.
type IdentityExtractor interface {
	ExtractIdentity(ctx context.Context, l lead.Lead) (IdentitySignals, error)
}

// WithIdentityExtractor overlays a live identity extractor on a base gateway,
// leaving every other provider untouched. The base gateway is never consulted
// for identity.
func WithIdentityExtractor(base Gateway, ex IdentityExtractor) Gateway {
	return &identityOverlay{Gateway: base, ex: ex}
}

type identityOverlay struct {
	Gateway
	ex IdentityExtractor
}

func (o *identityOverlay) Identity(ctx context.Context, l lead.Lead) (IdentitySignals, error) {
	return o.ex.ExtractIdentity(ctx, l)
}
