// Package score evaluates named rule sets against an enrichment snapshot and
// produces the weighted pain score, the triggered signals, and the tri-state
// qualification verdict.
package score

import (
	"sort"

	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
)

// Status is the qualification verdict.
type Status string

const (
	StatusRejected  Status = "REJECTED"
	StatusMarginal  Status = "MARGINAL"
	StatusQualified Status = "QUALIFIED"
)

// Category groups signals for reporting.
type Category string

const (
	CategoryTech        Category = "tech"
	CategoryWebsite     Category = "website"
	CategoryPerformance Category = "performance"
	CategoryReputation  Category = "reputation"
	CategoryPresence    Category = "presence"
	CategoryLicensing   Category = "licensing"
)

// Signal is one triggered rule. Points may be negative.
type Signal struct {
	Name     string   `json:"name"`
	Points   int      `json:"points"`
	Category Category `json:"category"`
}

// Result is the full scoring outcome for one lead.
type Result struct {
	Score   int      `json:"score"`
	Signals []Signal `json:"signals"`
	Status  Status   `json:"status"`

	// TopSignals lists the strongest positive signals, points-descending,
	// truncated to the rule set's configured count.
	TopSignals []string `json:"top_signals"`

	// FitScore is a bounded 0..100 transform of Score used for downstream
	// ranking only; it never feeds back into the verdict.
	FitScore int `json:"fit_score"`

	// DisqualifiedBy names the auto-disqualifier signal when one fired.
	DisqualifiedBy string `json:"disqualified_by,omitempty"`

	RuleSet string `json:"rule_set"`
}

// Predicate tests one condition over the lead and its snapshot.
type Predicate func(l lead.Lead, snap enrich.Snapshot) bool

// Rule binds a named signal to its predicate, weight, and category.
// Disqualifier rules short-circuit the whole evaluation when true.
type Rule struct {
	Signal       string
	Points       int
	Category     Category
	Disqualifier bool
	When         Predicate
}

// RuleSet is a named, self-contained scoring configuration. Different rule
// sets carry different thresholds and weights and must not be conflated.
type RuleSet struct {
	Name  string
	Rules []Rule

	// Verdict thresholds, ascending: score <= RejectMax is REJECTED,
	// score <= MarginalMax is MARGINAL, anything above is QUALIFIED.
	RejectMax   int
	MarginalMax int

	// TopSignalCount bounds Result.TopSignals. Zero means the default of 5.
	TopSignalCount int
}

// MaxPoints is the highest reachable score: the sum of all positive,
// non-disqualifier rule weights. It anchors the fit-score transform.
func (rs RuleSet) MaxPoints() int {
	total := 0
	for _, r := range rs.Rules {
		if r.Disqualifier || r.Points <= 0 {
			continue
		}
		total += r.Points
	}
	return total
}

func (rs RuleSet) topCount() int {
	if rs.TopSignalCount <= 0 {
		return 5
	}
	return rs.TopSignalCount
}

// Score evaluates the rule set. Auto-disqualifiers are checked first: the
// first one that holds forces score 0 and REJECTED, keeps only the triggering
// signal, and discards everything else. Otherwise every rule is evaluated
// independently (no early exit) and summed, negatives included.
func Score(l lead.Lead, snap enrich.Snapshot, rs RuleSet) Result {
	for _, r := range rs.Rules {
		if !r.Disqualifier || !r.When(l, snap) {
			continue
		}
		return Result{
			Score:          0,
			Signals:        []Signal{{Name: r.Signal, Points: 0, Category: r.Category}},
			Status:         StatusRejected,
			TopSignals:     []string{},
			FitScore:       0,
			DisqualifiedBy: r.Signal,
			RuleSet:        rs.Name,
		}
	}

	var signals []Signal
	total := 0
	for _, r := range rs.Rules {
		if r.Disqualifier || !r.When(l, snap) {
			continue
		}
		signals = append(signals, Signal{Name: r.Signal, Points: r.Points, Category: r.Category})
		total += r.Points
	}

	return Result{
		Score:      total,
		Signals:    signals,
		Status:     verdict(total, rs),
		TopSignals: topSignals(signals, rs.topCount()),
		FitScore:   fitScore(total, rs.MaxPoints()),
		RuleSet:    rs.Name,
	}
}

func verdict(score int, rs RuleSet) Status {
	switch {
	case score <= rs.RejectMax:
		return StatusRejected
	case score <= rs.MarginalMax:
		return StatusMarginal
	default:
		return StatusQualified
	}
}

// topSignals keeps positive signals only, strongest first.
func topSignals(signals []Signal, count int) []string {
	positive := make([]Signal, 0, len(signals))
	for _, s := range signals {
		if s.Points > 0 {
			positive = append(positive, s)
		}
	}
	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].Points > positive[j].Points
	})
	if len(positive) > count {
		positive = positive[:count]
	}
	names := make([]string, len(positive))
	for i, s := range positive {
		names[i] = s.Name
	}
	return names
}

// fitScore maps the pain score linearly into 0..100.
func fitScore(score, maxPoints int) int {
	if maxPoints <= 0 || score <= 0 {
		return 0
	}
	fit := score * 100 / maxPoints
	if fit > 100 {
		fit = 100
	}
	return fit
}
