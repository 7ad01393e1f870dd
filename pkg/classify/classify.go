// Package classify assigns each lead to one persona from a closed set using
// a priority-ordered rule table. The first matching rule wins; order is part
// of the contract, with "no website at all" outranking everything else.
package classify

import (
	"fmt"

	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/score"
)

// Category is one of the six closed personas.
type Category string

const (
	TheInvisible  Category = "THE_INVISIBLE"
	TheOutdated   Category = "THE_OUTDATED"
	TheSlow       Category = "THE_SLOW"
	TheManual     Category = "THE_MANUAL"
	TheExposed    Category = "THE_EXPOSED"
	Uncategorized Category = "UNCATEGORIZED"
)

// Confidence grades how certain the assignment is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Assignment is the classification outcome: exactly one primary category.
type Assignment struct {
	Category   Category   `json:"category"`
	Reason     string     `json:"reason"`
	Confidence Confidence `json:"confidence"`
}

// Predicate tests one persona rule. Triggered signals from scoring are
// available by name so rules can reuse the scorer's findings.
type Predicate func(l lead.Lead, snap enrich.Snapshot, triggered map[string]score.Signal) bool

// Rule is one row of the ordered table.
type Rule struct {
	Category   Category
	Confidence Confidence
	Reason     func(l lead.Lead, snap enrich.Snapshot) string
	When       Predicate
}

// Classifier evaluates an ordered rule table, first match wins.
type Classifier struct {
	rules []Rule
}

// New builds a classifier over an explicit rule table. Order is priority.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns the standard persona table.
func Default() *Classifier {
	return New(defaultRules())
}

// Classify returns the first matching persona, or UNCATEGORIZED with low
// confidence when nothing matches. Later rules are never evaluated once one
// matches.
func (c *Classifier) Classify(l lead.Lead, snap enrich.Snapshot, signals []score.Signal) Assignment {
	triggered := make(map[string]score.Signal, len(signals))
	for _, s := range signals {
		triggered[s.Name] = s
	}

	for _, r := range c.rules {
		if !r.When(l, snap, triggered) {
			continue
		}
		return Assignment{
			Category:   r.Category,
			Reason:     r.Reason(l, snap),
			Confidence: r.Confidence,
		}
	}
	return Assignment{
		Category:   Uncategorized,
		Reason:     "no persona rule matched",
		Confidence: ConfidenceLow,
	}
}

func defaultRules() []Rule {
	return []Rule{
		{
			// Highest priority by contract: a business with no website is
			// invisible regardless of any other signal.
			Category:   TheInvisible,
			Confidence: ConfidenceHigh,
			Reason: func(l lead.Lead, _ enrich.Snapshot) string {
				return fmt.Sprintf("%s has no website at all", l.BusinessName)
			},
			When: func(_ lead.Lead, snap enrich.Snapshot, _ map[string]score.Signal) bool {
				return !snap.HasWebsite
			},
		},
		{
			Category:   TheOutdated,
			Confidence: ConfidenceHigh,
			Reason: func(_ lead.Lead, snap enrich.Snapshot) string {
				return fmt.Sprintf("website looks abandoned (visual score %d, cms %q)", snap.Visual.Score, snap.Tech.CMS)
			},
			When: func(_ lead.Lead, snap enrich.Snapshot, triggered map[string]score.Signal) bool {
				_, lowVisual := triggered["low_visual_score"]
				_, oldCMS := triggered["outdated_cms"]
				return lowVisual || oldCMS
			},
		},
		{
			Category:   TheSlow,
			Confidence: ConfidenceMedium,
			Reason: func(_ lead.Lead, snap enrich.Snapshot) string {
				return fmt.Sprintf("site is functional but slow (performance %d)", snap.Performance.Score)
			},
			When: func(_ lead.Lead, _ enrich.Snapshot, triggered map[string]score.Signal) bool {
				_, slow := triggered["poor_performance"]
				_, load := triggered["slow_full_load"]
				return slow || load
			},
		},
		{
			Category:   TheManual,
			Confidence: ConfidenceMedium,
			Reason: func(l lead.Lead, _ enrich.Snapshot) string {
				return fmt.Sprintf("%s runs on phone calls: no CRM, no online booking", l.BusinessName)
			},
			When: func(_ lead.Lead, snap enrich.Snapshot, _ map[string]score.Signal) bool {
				return snap.HasWebsite && !snap.Tech.HasCRM && !snap.Tech.HasBookingSystem
			},
		},
		{
			Category:   TheExposed,
			Confidence: ConfidenceMedium,
			Reason: func(_ lead.Lead, snap enrich.Snapshot) string {
				return fmt.Sprintf("reputation is the weak point (gap %.1f, %d complaints)", snap.Reputation.RatingGap, snap.Reputation.ComplaintCount)
			},
			When: func(_ lead.Lead, snap enrich.Snapshot, triggered map[string]score.Signal) bool {
				_, gap := triggered["reputation_gap"]
				return gap || snap.Reputation.ComplaintCount > 0
			},
		},
	}
}
