package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leadscope/lead-qualifier/pkg/classify"
	"github.com/leadscope/lead-qualifier/pkg/council"
	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/resolve"
	"github.com/leadscope/lead-qualifier/pkg/score"
)

// ErrRunActive reports a second Process call for a lead whose run has not
// reached a terminal status yet.
var ErrRunActive = errors.New("pipeline: run already active for lead")

// Deliverer hands a qualified run to the downstream delivery integration
// (outside this core). A delivery error is noted on the run but never fails
// it.
type Deliverer interface {
	Deliver(ctx context.Context, l lead.Lead, run *Run) error
}

// Config wires the orchestrator's collaborators. Assembler and RuleSet are
// required; the rest are optional.
type Config struct {
	Assembler *enrich.Assembler
	RuleSet   score.RuleSet

	// Resolver performs license identity resolution. Nil skips resolution
	// and leaves the license record neutral.
	Resolver *resolve.Resolver

	// Classifier assigns personas to qualified leads. Nil uses the default
	// table.
	Classifier *classify.Classifier

	// Deliverer is invoked for qualified leads. Nil leaves runs at
	// QUALIFIED.
	Deliverer Deliverer

	Logger *slog.Logger
}

// Orchestrator is the pipeline state machine. All collaborators are injected
// at construction; the orchestrator itself only tracks the active-run set.
type Orchestrator struct {
	assembler  *enrich.Assembler
	resolver   *resolve.Resolver
	ruleSet    score.RuleSet
	classifier *classify.Classifier
	deliverer  Deliverer
	logger     *slog.Logger

	mu     sync.Mutex
	active map[string]bool
}

// New builds an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Assembler == nil {
		return nil, errors.New("pipeline: assembler is required")
	}
	if len(cfg.RuleSet.Rules) == 0 {
		return nil, errors.New("pipeline: rule set is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classify.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		assembler:  cfg.Assembler,
		resolver:   cfg.Resolver,
		ruleSet:    cfg.RuleSet,
		classifier: cfg.Classifier,
		deliverer:  cfg.Deliverer,
		logger:     cfg.Logger,
		active:     make(map[string]bool),
	}, nil
}

// Process runs the full pipeline for one lead and always returns a run in a
// terminal status. Provider failures degrade to neutral defaults and the run
// continues; only validation failures and unexpected errors (including
// panics) terminate at FAILED.
func (o *Orchestrator) Process(ctx context.Context, l lead.Lead) (run *Run) {
	run = newRun(l.ID)

	if err := lead.Validate(l); err != nil {
		run.fail(err.Error())
		return run
	}

	if !o.acquire(l.ID) {
		run.fail(fmt.Sprintf("%v: %s", ErrRunActive, l.ID))
		return run
	}
	defer o.release(l.ID)

	// The result is named so the recovered run, not a nil zero value, is
	// what the caller receives.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline stage panicked", "lead_id", l.ID, "panic", r)
			run.fail(fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	run.Status = StatusProcessing
	o.logger.Info("processing lead", "lead_id", l.ID, "rule_set", o.ruleSet.Name)

	// Enrichment: provider fan-out, graceful degradation inside.
	snap, err := o.assembler.Snapshot(ctx, l)
	if err != nil {
		// Only context cancellation escapes the assembler.
		run.fail(fmt.Sprintf("enrichment aborted: %v", err))
		return run
	}
	run.stamp(StageEnriched)

	// Identity resolution needs the identity provider's output, so it runs
	// strictly after assembly. Exhaustion is "identity unknown", not an
	// error.
	snap.License = o.resolveLicense(ctx, l, snap, run)
	run.Snapshot = snap

	run.Score = score.Score(l, snap, o.ruleSet)
	run.stamp(StageScored)

	switch run.Score.Status {
	case score.StatusRejected:
		run.finish(StatusRejected)
	case score.StatusMarginal:
		// A council review may follow, but only as a separately-triggered
		// operation.
		run.finish(StatusNeedsReview)
	case score.StatusQualified:
		run.Category = o.classifier.Classify(l, snap, run.Score.Signals)
		run.stamp(StageClassified)
		o.deliver(ctx, l, run)
	}

	o.logger.Info("lead processed",
		"lead_id", l.ID, "status", run.Status, "score", run.Score.Score, "category", run.Category.Category)
	return run
}

func (o *Orchestrator) resolveLicense(ctx context.Context, l lead.Lead, snap enrich.Snapshot, run *Run) enrich.LicenseInfo {
	if o.resolver == nil {
		return snap.License
	}

	res, err := o.resolver.Resolve(ctx, resolve.Inputs{
		LicenseNumber: l.LicenseNumber,
		BusinessName:  firstNonEmpty(snap.Identity.LegalName, l.BusinessName),
		OwnerName:     snap.Identity.OwnerName,
		Locality:      l.City,
	})
	run.Resolution = res
	run.stamp(StageResolved)
	if err != nil {
		if !errors.Is(err, resolve.ErrExhausted) {
			o.logger.Warn("identity resolution aborted", "lead_id", l.ID, "error", err)
		}
		return snap.License
	}

	return enrich.LicenseInfo{
		Found:      true,
		Status:     licenseStatus(res.Record.Status),
		Number:     res.Record.Number,
		HolderName: res.Record.HolderName,
		ResolvedBy: res.Method,
		Attempts:   res.Attempts,
	}
}

func (o *Orchestrator) deliver(ctx context.Context, l lead.Lead, run *Run) {
	if o.deliverer == nil {
		run.finish(StatusQualified)
		return
	}
	if err := o.deliverer.Deliver(ctx, l, run); err != nil {
		// Delivery lives outside the core: its failure is noted, never
		// fatal.
		o.logger.Warn("delivery failed", "lead_id", l.ID, "error", err)
		run.Error = fmt.Sprintf("delivery failed: %v", err)
		run.finish(StatusQualified)
		return
	}
	run.stamp(StageDelivered)
	run.finish(StatusDelivered)
}

// ReviewRun convenes a consensus council over a run that ended in
// NEEDS_REVIEW. It is a distinct operation, never chained automatically from
// Process.
func (o *Orchestrator) ReviewRun(ctx context.Context, l lead.Lead, run *Run, agents []council.Agent, opts council.Options) (council.Result, error) {
	if run == nil || run.Status != StatusNeedsReview {
		return council.Result{}, fmt.Errorf("pipeline: run for lead %s is not awaiting review", l.ID)
	}

	res, err := council.Convene(ctx, agents, council.ReviewContext{
		Lead:     l,
		Snapshot: run.Snapshot,
		Score:    run.Score,
		Question: "Should this marginal lead be pursued?",
	}, opts)
	if err != nil {
		return council.Result{}, err
	}
	run.Council = &res
	return res, nil
}

func (o *Orchestrator) acquire(leadID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[leadID] {
		return false
	}
	o.active[leadID] = true
	return true
}

func (o *Orchestrator) release(leadID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, leadID)
}

func licenseStatus(raw string) enrich.LicenseStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "current", "valid":
		return enrich.LicenseActive
	case "expired", "lapsed":
		return enrich.LicenseExpired
	case "suspended":
		return enrich.LicenseSuspended
	case "revoked", "cancelled":
		return enrich.LicenseRevoked
	default:
		return enrich.LicenseUnknown
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
