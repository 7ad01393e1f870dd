// Package pipeline sequences enrichment, identity resolution, scoring,
// classification, and delivery into one qualification run per lead.
package pipeline

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/leadscope/lead-qualifier/pkg/classify"
	"github.com/leadscope/lead-qualifier/pkg/council"
	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/resolve"
	"github.com/leadscope/lead-qualifier/pkg/score"
)

// Status is the run state. NEW and PROCESSING are transient; everything else
// is terminal.
type Status string

const (
	StatusNew         Status = "NEW"
	StatusProcessing  Status = "PROCESSING"
	StatusQualified   Status = "QUALIFIED"
	StatusRejected    Status = "REJECTED"
	StatusNeedsReview Status = "NEEDS_REVIEW"
	StatusDelivered   Status = "DELIVERED"
	StatusFailed      Status = "FAILED"
)

// Terminal reports whether the status ends the run.
func (s Status) Terminal() bool {
	switch s {
	case StatusQualified, StatusRejected, StatusNeedsReview, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// Stage names used for timestamps.
const (
	StageCreated    = "created"
	StageEnriched   = "enriched"
	StageResolved   = "resolved"
	StageScored     = "scored"
	StageClassified = "classified"
	StageDelivered  = "delivered"
	StageFinished   = "finished"
)

// Run is the mutable state of one qualification pipeline execution. Only the
// orchestrator mutates it; once Status is terminal it never changes again.
type Run struct {
	ID     string `json:"id"`
	LeadID string `json:"lead_id"`
	Status Status `json:"status"`

	StageTimestamps map[string]time.Time `json:"stage_timestamps"`

	Snapshot   enrich.Snapshot     `json:"snapshot"`
	Resolution resolve.Result      `json:"resolution"`
	Score      score.Result        `json:"score"`
	Category   classify.Assignment `json:"category"`

	// Council holds the consensus outcome when a review was convened for
	// this run.
	Council *council.Result `json:"council,omitempty"`

	// Error is non-empty for FAILED runs and for non-fatal delivery
	// failures noted on QUALIFIED runs.
	Error string `json:"error,omitempty"`
}

func newRun(leadID string) *Run {
	r := &Run{
		ID:              uuid.NewString(),
		LeadID:          leadID,
		Status:          StatusNew,
		StageTimestamps: make(map[string]time.Time),
	}
	r.stamp(StageCreated)
	return r
}

func (r *Run) stamp(stage string) {
	r.StageTimestamps[stage] = time.Now().UTC()
}

func (r *Run) finish(status Status) {
	r.Status = status
	r.stamp(StageFinished)
}

func (r *Run) fail(msg string) {
	r.Error = msg
	r.finish(StatusFailed)
}

// Record is the flat, JSON-serializable run record consumed at the system
// boundary. Field names are a stable contract for downstream consumers.
type Record struct {
	LeadID     string            `json:"lead_id"`
	Status     string            `json:"status"`
	Score      int               `json:"score"`
	FitScore   int               `json:"fit_score"`
	Signals    []string          `json:"signals"`
	TopSignals []string          `json:"top_signals"`
	Category   string            `json:"category"`
	Reasoning  string            `json:"reasoning"`
	Timestamps map[string]string `json:"timestamps"`
	Error      string            `json:"error,omitempty"`

	CouncilDecision string   `json:"council_decision,omitempty"`
	CouncilConcerns []string `json:"council_concerns,omitempty"`
}

// ToRecord flattens a run for export.
func (r *Run) ToRecord() Record {
	rec := Record{
		LeadID:     r.LeadID,
		Status:     string(r.Status),
		Score:      r.Score.Score,
		FitScore:   r.Score.FitScore,
		Signals:    []string{},
		TopSignals: r.Score.TopSignals,
		Category:   string(r.Category.Category),
		Reasoning:  r.Category.Reason,
		Timestamps: make(map[string]string, len(r.StageTimestamps)),
		Error:      r.Error,
	}
	if rec.TopSignals == nil {
		rec.TopSignals = []string{}
	}
	for _, s := range r.Score.Signals {
		rec.Signals = append(rec.Signals, s.Name)
	}
	sort.Strings(rec.Signals)
	if r.Score.DisqualifiedBy != "" && rec.Reasoning == "" {
		rec.Reasoning = "auto-disqualified: " + r.Score.DisqualifiedBy
	}
	for stage, ts := range r.StageTimestamps {
		rec.Timestamps[stage] = ts.Format(time.RFC3339Nano)
	}
	if r.Council != nil {
		rec.CouncilDecision = string(r.Council.Decision)
		// Fresh slice: appending to the council's own slice could scribble
		// over its backing array.
		concerns := make([]string, 0, len(r.Council.BlockingConcerns)+len(r.Council.Concerns))
		concerns = append(concerns, r.Council.BlockingConcerns...)
		concerns = append(concerns, r.Council.Concerns...)
		rec.CouncilConcerns = concerns
	}
	return rec
}

// MarshalJSONL renders the record as a single JSON line.
func (rec Record) MarshalJSONL() ([]byte, error) {
	return json.Marshal(rec)
}
