package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leadscope/lead-qualifier/pkg/pipeline/core"
	"github.com/leadscope/lead-qualifier/pkg/pipeline/worker"
)

func fastOpts() worker.Options {
	return worker.Options{
		Workers:           2,
		MaxRetries:        3,
		ItemTimeout:       time.Second,
		BackoffInitial:    time.Millisecond,
		BackoffMax:        2 * time.Millisecond,
		BackoffJitterFrac: 0,
	}
}

func TestRun_OneResultPerInputInOrder(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, in int) (int, error) {
		if in == 3 {
			return 0, errors.New("permanent")
		}
		return in * 10, nil
	}

	out, err := worker.Run(context.Background(), []int{1, 2, 3, 4}, fn, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 results, got %d", len(out))
	}
	for i, want := range []int{10, 20, 0, 40} {
		if out[i].Output != want {
			t.Fatalf("result %d: expected %d, got %d", i, want, out[i].Output)
		}
	}
	if out[2].Err == nil {
		t.Fatal("failed item must carry its error")
	}
	if out[0].Err != nil || out[3].Err != nil {
		t.Fatal("one failed item must not fail the others")
	}
}

func TestRun_RetriesTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	fn := func(_ context.Context, _ string) (string, error) {
		if calls.Add(1) <= 2 {
			return "", &core.TransientError{Err: errors.New("try again")}
		}
		return "ok", nil
	}

	out, err := worker.Run(context.Background(), []string{"lead-1"}, fn, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Err != nil || out[0].Output != "ok" {
		t.Fatalf("unexpected result: %+v", out[0])
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestRun_DoesNotRetryPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	fn := func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return "", errors.New("permanent")
	}

	out, err := worker.Run(context.Background(), []string{"x"}, fn, fastOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Err == nil {
		t.Fatal("expected error result")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("permanent errors must not retry, got %d calls", got)
	}
}

func TestRun_LimitedTransientCapsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	fn := func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return "", &core.LimitedTransientError{Err: errors.New("throttled"), RetryLimit: 1}
	}

	opts := fastOpts()
	opts.MaxRetries = 10
	if _, err := worker.Run(context.Background(), []string{"x"}, fn, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected retry cap of 1 extra attempt, got %d calls", got)
	}
}

func TestRun_ConcurrencyBounded(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int64
	var mu sync.Mutex
	fn := func(_ context.Context, in int) (int, error) {
		cur := inFlight.Add(1)
		mu.Lock()
		if cur > peak.Load() {
			peak.Store(cur)
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return in, nil
	}

	opts := fastOpts()
	opts.Workers = 3
	items := make([]int, 20)
	if _, err := worker.Run(context.Background(), items, fn, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := peak.Load(); p > 3 {
		t.Fatalf("concurrency limit exceeded: peak %d", p)
	}
}

func TestRunWithCallback_ErrorCancelsBatch(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, in int) (int, error) { return in, nil }
	boom := errors.New("sink full")

	var seen atomic.Int64
	_, err := worker.RunWithCallback(context.Background(), make([]int, 50), fn,
		func(worker.Result[int, int]) error {
			if seen.Add(1) == 1 {
				return boom
			}
			return nil
		}, fastOpts())
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fn := func(_ context.Context, in int) (int, error) { return in, nil }
	if _, err := worker.Run(ctx, []int{1}, fn, fastOpts()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
