// Package worker is the bounded worker pool used for batch lead processing:
// a fixed number of workers over a job channel, a global rate limit, a
// per-item timeout, and retry with exponential backoff for transient errors.
package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leadscope/lead-qualifier/pkg/pipeline/core"
)

// Options bounds one batch run.
type Options struct {
	// Workers is the concurrency limit. Zero means 10.
	Workers int

	// MaxRetries is the extra-attempt budget per item for transient
	// failures.
	MaxRetries int

	// ItemTimeout bounds each processor call. Zero means 30s.
	ItemTimeout time.Duration

	// RateLimitRPS is a global limit across all workers. Zero disables.
	RateLimitRPS float64

	// BackoffInitial is the first retry sleep; doubles up to BackoffMax with
	// +/- BackoffJitterFrac jitter.
	BackoffInitial    time.Duration
	BackoffMax        time.Duration
	BackoffJitterFrac float64
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 10
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = 30 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

// Result pairs one input with its outcome. Exactly one Result is produced
// per input, in input order; a failed item carries its error instead of
// failing the batch.
type Result[In any, Out any] struct {
	Input  In
	Output Out
	Err    error
}

// Run processes all items through the pool and returns one result per input,
// input-ordered.
func Run[In any, Out any](
	ctx context.Context,
	items []In,
	process func(context.Context, In) (Out, error),
	opts Options,
) ([]Result[In, Out], error) {
	return RunWithCallback(ctx, items, process, nil, opts)
}

// RunWithCallback additionally invokes onResult as items complete, in
// completion order. A callback error cancels the whole batch.
func RunWithCallback[In any, Out any](
	ctx context.Context,
	items []In,
	process func(context.Context, In) (Out, error),
	onResult func(Result[In, Out]) error,
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	type job struct {
		idx int
		in  In
	}
	type completion struct {
		idx int
		res Result[In, Out]
	}

	jobs := make(chan job)
	completions := make(chan completion, opts.Workers)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if runCtx.Err() != nil {
					return
				}
				out, err := attempt(runCtx, j.in, process, limiter, opts)
				res := Result[In, Out]{Input: j.in, Output: out, Err: err}
				select {
				case completions <- completion{idx: j.idx, res: res}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- job{idx: i, in: item}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(completions)
	}()

	out := make([]Result[In, Out], len(items))
	for c := range completions {
		out[c.idx] = c.res
		if onResult != nil {
			if err := onResult(c.res); err != nil {
				cancel(err)
			}
		}
	}

	if err := context.Cause(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// attempt runs one item with the retry budget.
func attempt[In any, Out any](
	ctx context.Context,
	item In,
	process func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) (Out, error) {
	var last Out
	backoff := opts.BackoffInitial
	for tries := 0; ; tries++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return last, err
			}
		}

		itemCtx, cancel := context.WithTimeout(ctx, opts.ItemTimeout)
		out, err := process(itemCtx, item)
		cancel()
		last = out
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return last, ctx.Err()
		}
		if !isTransient(err) || tries >= retryBudget(opts.MaxRetries, err) {
			return last, err
		}

		t := time.NewTimer(jittered(backoff, opts.BackoffJitterFrac))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return last, ctx.Err()
		}
		if backoff *= 2; backoff > opts.BackoffMax {
			backoff = opts.BackoffMax
		}
	}
}

type retryCap interface {
	MaxExtraRetries() int
}

// retryBudget lets an error tighten (never widen) the retry budget.
func retryBudget(budget int, err error) int {
	var capped retryCap
	if errors.As(err, &capped) {
		if limit := capped.MaxExtraRetries(); limit < budget {
			return limit
		}
	}
	return budget
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *core.TransientError
	if errors.As(err, &te) {
		return true
	}
	var lte *core.LimitedTransientError
	if errors.As(err, &lte) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func jittered(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	j := 1 + (rand.Float64()*2-1)*frac
	return time.Duration(float64(d) * j)
}
