// Package council aggregates the judgments of several independent evaluators
// into a single consensus decision, either as a strict majority vote or as an
// averaged-confidence soft consensus.
package council

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/score"
)

// Choice is one agent's vote.
type Choice string

const (
	ChoiceApprove Choice = "approve"
	ChoiceReject  Choice = "reject"
	ChoiceAbstain Choice = "abstain"
)

// Vote is one agent's full judgment. Confidence is 0..1.
type Vote struct {
	AgentID          string   `json:"agent_id"`
	Choice           Choice   `json:"choice"`
	Confidence       float64  `json:"confidence"`
	Reason           string   `json:"reason,omitempty"`
	BlockingConcerns []string `json:"blocking_concerns,omitempty"`
	Concerns         []string `json:"concerns,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// Decision is the aggregated outcome.
type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionRejected    Decision = "rejected"
	DecisionTie         Decision = "tie"
	DecisionBlocked     Decision = "blocked"
	DecisionNeedsReview Decision = "needs_review"
)

// Tally is the vote breakdown. ApprovalRate counts abstains in the
// denominator; the majority comparison does not.
type Tally struct {
	Approve      int     `json:"approve"`
	Reject       int     `json:"reject"`
	Abstain      int     `json:"abstain"`
	ApprovalRate float64 `json:"approval_rate"`
}

// Result is the council's aggregated output.
type Result struct {
	Decision         Decision `json:"decision"`
	Tally            Tally    `json:"tally"`
	MeanConfidence   float64  `json:"mean_confidence"`
	BlockingConcerns []string `json:"blocking_concerns,omitempty"`
	Concerns         []string `json:"concerns,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
	Votes            []Vote   `json:"votes"`
}

// ReviewContext is the shared material every agent evaluates.
type ReviewContext struct {
	Lead     lead.Lead       `json:"lead"`
	Snapshot enrich.Snapshot `json:"snapshot"`
	Score    score.Result    `json:"score"`

	// Question frames the review, e.g. "should this marginal lead be
	// pursued?".
	Question string `json:"question"`
}

// Agent is one independent evaluator.
type Agent interface {
	ID() string
	Evaluate(ctx context.Context, rc ReviewContext) (Vote, error)
}

// Mode selects the aggregation protocol.
type Mode int

const (
	// StrictVote tallies approve vs reject; majority wins, equal tallies are
	// a tie, and any blocking concern overrides the tally entirely.
	StrictVote Mode = iota

	// SoftConsensus averages confidences against a threshold and unions
	// concerns/recommendations instead of voting on them.
	SoftConsensus
)

// Options configures one council invocation.
type Options struct {
	Mode Mode

	// SoftThreshold is the mean confidence needed for approval in
	// SoftConsensus mode. Zero means the default of 0.7.
	SoftThreshold float64

	// AgentTimeout bounds each agent's evaluation. Zero means 60s.
	AgentTimeout time.Duration

	Logger *slog.Logger
}

// ErrNoAgents reports a convene call without any agents.
var ErrNoAgents = errors.New("council: no agents")

// Convene runs every agent concurrently over the same context and aggregates
// their votes. An agent whose evaluation errors, times out, or returns an
// unparseable vote degrades to an abstain with confidence 0; the council
// always produces a result as long as it has agents. Invocations are
// stateless and never retried.
func Convene(ctx context.Context, agents []Agent, rc ReviewContext, opts Options) (Result, error) {
	if len(agents) == 0 {
		return Result{}, ErrNoAgents
	}
	if opts.SoftThreshold <= 0 {
		opts.SoftThreshold = 0.7
	}
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	votes := make([]Vote, len(agents))
	var wg sync.WaitGroup
	for i, agent := range agents {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()
			votes[i] = evaluateOne(ctx, agent, rc, opts.AgentTimeout, logger)
		}(i, agent)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch opts.Mode {
	case SoftConsensus:
		return aggregateSoft(votes, opts.SoftThreshold), nil
	default:
		return aggregateStrict(votes), nil
	}
}

func evaluateOne(ctx context.Context, agent Agent, rc ReviewContext, timeout time.Duration, logger *slog.Logger) Vote {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vote, err := agent.Evaluate(actx, rc)
	if err != nil {
		logger.Warn("agent degraded to abstain", "agent", agent.ID(), "error", err)
		return Vote{AgentID: agent.ID(), Choice: ChoiceAbstain, Confidence: 0, Reason: "evaluation failed"}
	}
	vote.AgentID = agent.ID()
	switch vote.Choice {
	case ChoiceApprove, ChoiceReject, ChoiceAbstain:
	default:
		// Unparseable choice is treated the same as a failed call.
		logger.Warn("agent returned unknown choice", "agent", agent.ID(), "choice", vote.Choice)
		return Vote{AgentID: agent.ID(), Choice: ChoiceAbstain, Confidence: 0, Reason: "unparseable vote"}
	}
	if vote.Confidence < 0 {
		vote.Confidence = 0
	}
	if vote.Confidence > 1 {
		vote.Confidence = 1
	}
	return vote
}

func aggregateStrict(votes []Vote) Result {
	res := Result{Votes: votes}
	for _, v := range votes {
		switch v.Choice {
		case ChoiceApprove:
			res.Tally.Approve++
		case ChoiceReject:
			res.Tally.Reject++
		default:
			res.Tally.Abstain++
		}
		res.BlockingConcerns = append(res.BlockingConcerns, v.BlockingConcerns...)
	}
	total := res.Tally.Approve + res.Tally.Reject + res.Tally.Abstain
	if total > 0 {
		res.Tally.ApprovalRate = float64(res.Tally.Approve) / float64(total)
	}
	res.MeanConfidence = meanConfidence(votes)
	res.BlockingConcerns = dedupe(res.BlockingConcerns)

	switch {
	case len(res.BlockingConcerns) > 0:
		res.Decision = DecisionBlocked
	case res.Tally.Approve > res.Tally.Reject:
		res.Decision = DecisionApproved
	case res.Tally.Reject > res.Tally.Approve:
		res.Decision = DecisionRejected
	default:
		// Equal tallies stay a tie; never silently resolved either way.
		res.Decision = DecisionTie
	}
	return res
}

func aggregateSoft(votes []Vote, threshold float64) Result {
	res := Result{Votes: votes}
	for _, v := range votes {
		switch v.Choice {
		case ChoiceApprove:
			res.Tally.Approve++
		case ChoiceReject:
			res.Tally.Reject++
		default:
			res.Tally.Abstain++
		}
		res.Concerns = append(res.Concerns, v.Concerns...)
		res.Recommendations = append(res.Recommendations, v.Recommendations...)
		res.BlockingConcerns = append(res.BlockingConcerns, v.BlockingConcerns...)
	}
	total := res.Tally.Approve + res.Tally.Reject + res.Tally.Abstain
	if total > 0 {
		res.Tally.ApprovalRate = float64(res.Tally.Approve) / float64(total)
	}
	res.MeanConfidence = meanConfidence(votes)
	res.Concerns = dedupe(res.Concerns)
	res.Recommendations = dedupe(res.Recommendations)
	res.BlockingConcerns = dedupe(res.BlockingConcerns)

	if res.MeanConfidence >= threshold {
		res.Decision = DecisionApproved
	} else {
		res.Decision = DecisionNeedsReview
	}
	return res
}

func meanConfidence(votes []Vote) float64 {
	if len(votes) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range votes {
		sum += v.Confidence
	}
	return sum / float64(len(votes))
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
