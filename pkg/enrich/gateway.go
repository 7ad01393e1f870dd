package enrich

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leadscope/lead-qualifier/pkg/lead"
)

// ErrUnavailable is returned by gateway implementations for expected failure
// classes (timeout, non-2xx, malformed payload). The assembler absorbs it and
// substitutes the provider's neutral default; it never propagates further.
var ErrUnavailable = errors.New("provider unavailable")

// Gateway is the uniform boundary to the external signal providers. Concrete
// implementations (scrapers, audit APIs, registries) live outside the
// decision core; implementations must map expected failures to ErrUnavailable
// rather than bespoke errors.
type Gateway interface {
	Tech(ctx context.Context, l lead.Lead) (TechSignals, error)
	Visual(ctx context.Context, l lead.Lead) (VisualSignals, error)
	Performance(ctx context.Context, l lead.Lead) (PerformanceSignals, error)
	Directory(ctx context.Context, l lead.Lead) (DirectorySignals, error)
	Reputation(ctx context.Context, l lead.Lead) (ReputationInfo, error)
	Address(ctx context.Context, l lead.Lead) (AddressInfo, error)
	Identity(ctx context.Context, l lead.Lead) (IdentitySignals, error)
}

// RetryPolicy is the single retry/backoff schedule applied uniformly at the
// gateway boundary. Attempts are total calls, not extra retries.
type RetryPolicy struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryPolicy returns sensible defaults for provider calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       2,
		BackoffBase:       250 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        2 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = d.BackoffBase
	}
	if p.BackoffMultiplier <= 1 {
		p.BackoffMultiplier = d.BackoffMultiplier
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	return p
}

// AssemblerOptions configures snapshot assembly.
type AssemblerOptions struct {
	// ProviderTimeout bounds each individual provider call.
	ProviderTimeout time.Duration
	Retry           RetryPolicy
	Logger          *slog.Logger
}

// Assembler fans out to every provider concurrently and assembles one
// Snapshot. Provider failures are isolated: the failing sub-record reverts to
// its neutral default and assembly continues. This graceful degradation is a
// deliberate contract of the pipeline.
type Assembler struct {
	gw      Gateway
	timeout time.Duration
	retry   RetryPolicy
	logger  *slog.Logger
}

// NewAssembler builds an assembler around a configured gateway.
func NewAssembler(gw Gateway, opts AssemblerOptions) *Assembler {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 20 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		gw:      gw,
		timeout: opts.ProviderTimeout,
		retry:   opts.Retry.withDefaults(),
		logger:  logger,
	}
}

// Snapshot runs the provider fan-out for one lead. The overall latency is
// bounded by the slowest provider; the returned error is non-nil only when
// the surrounding context is cancelled.
func (a *Assembler) Snapshot(ctx context.Context, l lead.Lead) (Snapshot, error) {
	snap := Neutral(l.ID, l.HasWebsite())

	var mu sync.Mutex
	var degraded []string
	markDegraded := func(provider string, err error) {
		a.logger.Warn("provider degraded to neutral default",
			"lead_id", l.ID, "provider", provider, "error", err)
		mu.Lock()
		degraded = append(degraded, provider)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := fetch(gctx, a, l, a.gw.Tech)
		if err != nil {
			markDegraded("tech", err)
			return nil
		}
		snap.Tech = v
		return nil
	})
	g.Go(func() error {
		v, err := fetch(gctx, a, l, a.gw.Visual)
		if err != nil {
			markDegraded("visual", err)
			return nil
		}
		snap.Visual = v
		return nil
	})
	g.Go(func() error {
		v, err := fetch(gctx, a, l, a.gw.Performance)
		if err != nil {
			markDegraded("performance", err)
			return nil
		}
		snap.Performance = v
		return nil
	})
	g.Go(func() error {
		v, err := fetch(gctx, a, l, a.gw.Directory)
		if err != nil {
			markDegraded("directory", err)
			return nil
		}
		snap.Directory = v
		return nil
	})
	g.Go(func() error {
		v, err := fetch(gctx, a, l, a.gw.Reputation)
		if err != nil {
			markDegraded("reputation", err)
			return nil
		}
		snap.Reputation = v
		return nil
	})
	g.Go(func() error {
		v, err := fetch(gctx, a, l, a.gw.Address)
		if err != nil {
			markDegraded("address", err)
			return nil
		}
		snap.Address = v
		return nil
	})
	g.Go(func() error {
		v, err := fetch(gctx, a, l, a.gw.Identity)
		if err != nil {
			markDegraded("identity", err)
			return nil
		}
		snap.Identity = v
		return nil
	})

	// Closures only absorb; Wait's error can only come from gctx plumbing.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	sort.Strings(degraded)
	snap.Degraded = degraded
	return snap, nil
}

// fetch applies the per-provider timeout and the uniform retry policy to one
// gateway call.
func fetch[T any](ctx context.Context, a *Assembler, l lead.Lead, call func(context.Context, lead.Lead) (T, error)) (T, error) {
	var zero T
	var lastErr error

	backoff := a.retry.BackoffBase
	for attempt := 1; attempt <= a.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		v, err := call(callCtx, l)
		cancel()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == a.retry.MaxAttempts {
			break
		}
		t := time.NewTimer(backoff)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		}
		backoff = time.Duration(float64(backoff) * a.retry.BackoffMultiplier)
		if backoff > a.retry.MaxBackoff {
			backoff = a.retry.MaxBackoff
		}
	}
	return zero, lastErr
}
