// Package app wires configuration, IO, and the pipeline into the runnable
// qualify and review workflows behind the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leadscope/lead-qualifier/internal/config"
	"github.com/leadscope/lead-qualifier/internal/registry"
	"github.com/leadscope/lead-qualifier/internal/util"
	"github.com/leadscope/lead-qualifier/pkg/council"
	councilgemini "github.com/leadscope/lead-qualifier/pkg/council/gemini"
	"github.com/leadscope/lead-qualifier/pkg/enrich"
	enrichgemini "github.com/leadscope/lead-qualifier/pkg/enrich/gemini"
	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/pipeline"
	"github.com/leadscope/lead-qualifier/pkg/pipeline/io/local"
	"github.com/leadscope/lead-qualifier/pkg/resolve"
	"github.com/leadscope/lead-qualifier/pkg/score"
)

// Deps carries optional collaborator overrides, used by tests and by callers
// embedding the workflow. Nil fields are built from the config.
type Deps struct {
	Gateway   enrich.Gateway
	Registry  resolve.RegistryClient
	Agents    []council.Agent
	Deliverer pipeline.Deliverer
	Logger    *slog.Logger
}

// Params describes one qualify invocation.
type Params struct {
	InputPath  string
	OutputPath string

	// Incremental reuses terminal records from an existing output file and
	// only reprocesses the rest.
	Incremental bool

	// Review convenes the consensus council over leads that end in
	// NEEDS_REVIEW.
	Review bool
}

// RunQualify reads a lead batch, runs the qualification pipeline, and writes
// one record per input lead. Input and output formats follow the file
// extensions (.csv or .jsonl).
func RunQualify(ctx context.Context, cfg config.Config, p Params, deps Deps) error {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	leads, providers, err := readLeads(p.InputPath)
	if err != nil {
		return err
	}
	logger.Info("loaded leads", "count", len(leads), "input", p.InputPath)

	o, err := buildOrchestrator(ctx, cfg, deps, providers, logger)
	if err != nil {
		return err
	}

	plan := buildIncrementalPlan(leads, priorRecords(p, logger))
	if plan.cached > 0 {
		logger.Info("incremental rerun", "cached", plan.cached, "pending", len(plan.pending))
	}

	runs, err := o.ProcessBatch(ctx, plan.pending, pipeline.BatchOptions{
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		LeadTimeout:    cfg.Pipeline.LeadTimeout.Std(),
		RateLimitRPS:   cfg.Pipeline.RateLimitRPS,
	})
	if err != nil {
		return err
	}

	if p.Review {
		agents, err := buildAgents(ctx, cfg, deps)
		if err != nil {
			return err
		}
		reviewMarginal(ctx, o, plan.pending, runs, agents, councilOptions(cfg, logger), logger)
	}

	records := make([]pipeline.Record, len(runs))
	for i, run := range runs {
		rec := run.ToRecord()
		rec.Error = util.RedactSecrets(rec.Error)
		records[i] = rec
	}
	if err := plan.apply(records); err != nil {
		return err
	}

	return writeRecords(p.OutputPath, plan.records)
}

func buildOrchestrator(
	ctx context.Context,
	cfg config.Config,
	deps Deps,
	providers map[string]enrich.ProviderData,
	logger *slog.Logger,
) (*pipeline.Orchestrator, error) {
	gw := deps.Gateway
	if gw == nil {
		gw = enrich.NewStaticGateway(providers)
	}
	if cfg.Gemini.APIKey != "" && deps.Gateway == nil {
		ex, err := enrichgemini.New(ctx, enrichgemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("identity extractor: %w", err)
		}
		gw = enrich.WithIdentityExtractor(gw, ex)
	}

	var resolver *resolve.Resolver
	regClient := deps.Registry
	if regClient == nil && cfg.Registry.BaseURL != "" {
		c, err := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Token)
		if err != nil {
			return nil, fmt.Errorf("registry client: %w", err)
		}
		regClient = c
	}
	if regClient != nil {
		resolver = resolve.New(resolve.DefaultStrategies(regClient), logger)
	}

	ruleSet, err := loadRuleSet(cfg.Scoring)
	if err != nil {
		return nil, err
	}

	return pipeline.New(pipeline.Config{
		Assembler: enrich.NewAssembler(gw, enrich.AssemblerOptions{Logger: logger}),
		RuleSet:   ruleSet,
		Resolver:  resolver,
		Deliverer: deps.Deliverer,
		Logger:    logger,
	})
}

func loadRuleSet(sc config.Scoring) (score.RuleSet, error) {
	if sc.RuleSetFile != "" {
		return score.LoadRuleSet(sc.RuleSetFile)
	}
	return score.RuleSetByName(sc.RuleSet)
}

func buildAgents(ctx context.Context, cfg config.Config, deps Deps) ([]council.Agent, error) {
	if len(deps.Agents) > 0 {
		return deps.Agents, nil
	}
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("review requires GEMINI_API_KEY or injected agents")
	}
	if len(cfg.Council.Personas) == 0 {
		return nil, fmt.Errorf("review requires council.personas in the config")
	}
	agents := make([]council.Agent, 0, len(cfg.Council.Personas))
	for _, p := range cfg.Council.Personas {
		a, err := councilgemini.New(ctx, councilgemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			AgentID: p.ID,
			Persona: p.Brief,
			Focus:   p.Focus,
		})
		if err != nil {
			return nil, fmt.Errorf("council agent %s: %w", p.ID, err)
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func councilOptions(cfg config.Config, logger *slog.Logger) council.Options {
	mode := council.StrictVote
	if cfg.Council.Mode == "soft" {
		mode = council.SoftConsensus
	}
	return council.Options{
		Mode:          mode,
		SoftThreshold: cfg.Council.SoftThreshold,
		AgentTimeout:  cfg.Council.AgentTimeout.Std(),
		Logger:        logger,
	}
}

// reviewMarginal convenes the council for every NEEDS_REVIEW run. A failed
// convening leaves the run as-is; review is advisory.
func reviewMarginal(
	ctx context.Context,
	o *pipeline.Orchestrator,
	leads []lead.Lead,
	runs []*pipeline.Run,
	agents []council.Agent,
	opts council.Options,
	logger *slog.Logger,
) {
	for i, run := range runs {
		if run.Status != pipeline.StatusNeedsReview {
			continue
		}
		res, err := o.ReviewRun(ctx, leads[i], run, agents, opts)
		if err != nil {
			logger.Warn("council review failed", "lead_id", run.LeadID, "error", err)
			continue
		}
		logger.Info("council review complete",
			"lead_id", run.LeadID, "decision", res.Decision, "approval_rate", res.Tally.ApprovalRate)
	}
}

func readLeads(path string) ([]lead.Lead, map[string]enrich.ProviderData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return local.ReadLeadsJSONL(f)
	case ".csv":
		leads, err := local.ReadLeadsCSV(f)
		return leads, nil, err
	default:
		return nil, nil, fmt.Errorf("unsupported input format %q (want .csv or .jsonl)", filepath.Ext(path))
	}
}

func writeRecords(path string, recs []pipeline.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		if err := local.WriteRecordsJSONL(f, recs); err != nil {
			return err
		}
	case ".csv":
		if err := local.WriteRecordsCSV(f, recs); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported output format %q (want .csv or .jsonl)", filepath.Ext(path))
	}
	return f.Close()
}

// priorRecords loads the existing output for an incremental rerun. Any read
// problem just disables reuse.
func priorRecords(p Params, logger *slog.Logger) map[string]pipeline.Record {
	if !p.Incremental || !strings.EqualFold(filepath.Ext(p.OutputPath), ".jsonl") {
		return nil
	}
	f, err := os.Open(p.OutputPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("incremental: cannot read prior output", "error", err)
		}
		return nil
	}
	defer func() {
		_ = f.Close()
	}()

	recs, err := local.ReadRecordsJSONL(f)
	if err != nil {
		logger.Warn("incremental: cannot parse prior output", "error", err)
		return nil
	}
	out := make(map[string]pipeline.Record, len(recs))
	for _, rec := range recs {
		if rec.LeadID != "" {
			out[rec.LeadID] = rec
		}
	}
	return out
}

// incrementalPlan reuses settled records and tracks which leads still need a
// run. FAILED and NEEDS_REVIEW records are always reprocessed.
type incrementalPlan struct {
	records    []pipeline.Record
	pending    []lead.Lead
	pendingIdx []int
	cached     int
}

func settled(status string) bool {
	switch pipeline.Status(status) {
	case pipeline.StatusQualified, pipeline.StatusRejected, pipeline.StatusDelivered:
		return true
	}
	return false
}

func buildIncrementalPlan(leads []lead.Lead, prior map[string]pipeline.Record) incrementalPlan {
	plan := incrementalPlan{records: make([]pipeline.Record, len(leads))}
	for i, l := range leads {
		if prev, ok := prior[l.ID]; ok && settled(prev.Status) {
			plan.records[i] = prev
			plan.cached++
			continue
		}
		plan.pending = append(plan.pending, l)
		plan.pendingIdx = append(plan.pendingIdx, i)
	}
	return plan
}

func (p *incrementalPlan) apply(recs []pipeline.Record) error {
	if len(recs) != len(p.pendingIdx) {
		return fmt.Errorf("incremental mismatch: got %d records for %d pending leads", len(recs), len(p.pendingIdx))
	}
	for i, idx := range p.pendingIdx {
		p.records[idx] = recs[i]
	}
	return nil
}
