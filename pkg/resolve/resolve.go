// Package resolve implements the identity-resolution waterfall: an ordered
// list of lookup strategies tried until one produces a confident match.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrExhausted reports that every applicable strategy ran without a confident
// match. It is not fatal: downstream treats it as "identity unknown".
var ErrExhausted = errors.New("resolution exhausted")

// Inputs carries the identity fragments available for query building.
// Strategies skip themselves when their required fields are absent.
type Inputs struct {
	LicenseNumber string
	BusinessName  string
	OwnerName     string
	Locality      string
}

// Record is a resolved registry record.
type Record struct {
	Number     string
	HolderName string
	Status     string
}

// Strategy is one rung of the waterfall.
type Strategy interface {
	// Name identifies the strategy in results and diagnostics.
	Name() string

	// BuildQuery derives a query key from the inputs. ok is false when the
	// strategy's required inputs are absent; the strategy is then skipped
	// without counting as an attempt.
	BuildQuery(in Inputs) (query string, ok bool)

	// Lookup executes the query against the backing registry.
	Lookup(ctx context.Context, query string) (Record, error)

	// ConfidentMatch reports whether the outcome is trustworthy enough to
	// stop the waterfall.
	ConfidentMatch(rec Record) bool
}

// Attempt records one executed lookup for diagnostics.
type Attempt struct {
	Strategy string `json:"strategy"`
	Query    string `json:"query"`
	Outcome  string `json:"outcome"`
}

// Result is the final outcome of one waterfall run.
type Result struct {
	Found    bool      `json:"found"`
	Method   string    `json:"method,omitempty"`
	Attempts int       `json:"attempts"`
	Record   Record    `json:"-"`
	Trail    []Attempt `json:"trail,omitempty"`
}

// Resolver runs strategies in priority order.
type Resolver struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New builds a resolver over an ordered strategy list. Order is the priority
// contract: earlier strategies are more trusted.
func New(strategies []Strategy, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{strategies: strategies, logger: logger}
}

// Resolve tries each strategy until one yields a confident match. Only
// executed lookups count as attempts; strategies skipped for missing inputs
// do not. When every strategy misses, the result carries Found=false and the
// full attempt trail.
func (r *Resolver) Resolve(ctx context.Context, in Inputs) (Result, error) {
	res := Result{}
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		query, ok := s.BuildQuery(in)
		if !ok {
			continue
		}

		res.Attempts++
		rec, err := s.Lookup(ctx, query)
		if err != nil {
			res.Trail = append(res.Trail, Attempt{Strategy: s.Name(), Query: query, Outcome: fmt.Sprintf("error: %v", err)})
			r.logger.Debug("resolution strategy errored", "strategy", s.Name(), "error", err)
			continue
		}
		if !s.ConfidentMatch(rec) {
			res.Trail = append(res.Trail, Attempt{Strategy: s.Name(), Query: query, Outcome: "no confident match"})
			continue
		}

		res.Trail = append(res.Trail, Attempt{Strategy: s.Name(), Query: query, Outcome: "match"})
		res.Found = true
		res.Method = s.Name()
		res.Record = rec
		return res, nil
	}
	return res, ErrExhausted
}
