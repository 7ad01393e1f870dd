package pipeline

import (
	"context"
	"time"

	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/pipeline/worker"
)

// BatchOptions bounds a multi-lead batch.
type BatchOptions struct {
	// MaxConcurrency is the worker-pool size. Zero means 4.
	MaxConcurrency int

	// LeadTimeout bounds one lead's full pipeline run. Zero means 2m.
	LeadTimeout time.Duration

	// RateLimitRPS globally limits lead starts per second. Zero disables.
	RateLimitRPS float64
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 4
	}
	if o.LeadTimeout <= 0 {
		o.LeadTimeout = 2 * time.Minute
	}
	return o
}

// ProcessBatch qualifies many leads through the bounded worker pool. Every
// input lead yields exactly one run (possibly FAILED); input order is
// preserved in the result.
func (o *Orchestrator) ProcessBatch(ctx context.Context, leads []lead.Lead, opts BatchOptions) ([]*Run, error) {
	opts = opts.withDefaults()

	results, err := worker.Run(ctx, leads,
		func(leadCtx context.Context, l lead.Lead) (*Run, error) {
			// Process never fails the batch: it reports through the run.
			return o.Process(leadCtx, l), nil
		},
		worker.Options{
			Workers:      opts.MaxConcurrency,
			ItemTimeout:  opts.LeadTimeout,
			RateLimitRPS: opts.RateLimitRPS,
		})
	if err != nil {
		return nil, err
	}

	runs := make([]*Run, len(results))
	for i, r := range results {
		runs[i] = r.Output
	}
	return runs, nil
}
