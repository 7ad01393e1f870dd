package resolve_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leadscope/lead-qualifier/pkg/resolve"
)

// fakeStrategy is a scriptable waterfall rung.
type fakeStrategy struct {
	name      string
	skip      bool
	rec       resolve.Record
	err       error
	confident bool
	calls     int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) BuildQuery(resolve.Inputs) (string, bool) {
	if f.skip {
		return "", false
	}
	return "q-" + f.name, true
}

func (f *fakeStrategy) Lookup(context.Context, string) (resolve.Record, error) {
	f.calls++
	return f.rec, f.err
}

func (f *fakeStrategy) ConfidentMatch(resolve.Record) bool { return f.confident }

func TestResolve_StopsAtFirstConfidentMatch(t *testing.T) {
	t.Parallel()

	a := &fakeStrategy{name: "A", err: errors.New("miss")}
	b := &fakeStrategy{name: "B", rec: resolve.Record{Number: "C-123", Status: "active"}, confident: true}
	c := &fakeStrategy{name: "C", confident: true}

	r := resolve.New([]resolve.Strategy{a, b, c}, nil)
	res, err := r.Resolve(context.Background(), resolve.Inputs{BusinessName: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found || res.Method != "B" || res.Attempts != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c.calls != 0 {
		t.Fatalf("strategy C must never be invoked, got %d calls", c.calls)
	}
	if res.Record.Number != "C-123" {
		t.Fatalf("winning record not carried: %+v", res.Record)
	}
}

func TestResolve_SkippedStrategiesDoNotCountAsAttempts(t *testing.T) {
	t.Parallel()

	a := &fakeStrategy{name: "A", skip: true}
	b := &fakeStrategy{name: "B", err: errors.New("miss")}
	c := &fakeStrategy{name: "C", err: errors.New("miss")}

	r := resolve.New([]resolve.Strategy{a, b, c}, nil)
	res, err := r.Resolve(context.Background(), resolve.Inputs{})
	if !errors.Is(err, resolve.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if res.Found || res.Method != "" {
		t.Fatalf("exhausted run must not report a method: %+v", res)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts (skips excluded), got %d", res.Attempts)
	}
	trail := []string{}
	for _, at := range res.Trail {
		trail = append(trail, at.Strategy)
	}
	if diff := cmp.Diff([]string{"B", "C"}, trail); diff != "" {
		t.Fatalf("trail mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_UnconfidentMatchAdvances(t *testing.T) {
	t.Parallel()

	a := &fakeStrategy{name: "A", rec: resolve.Record{Number: "weak"}, confident: false}
	b := &fakeStrategy{name: "B", rec: resolve.Record{Number: "strong"}, confident: true}

	r := resolve.New([]resolve.Strategy{a, b}, nil)
	res, err := r.Resolve(context.Background(), resolve.Inputs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != "B" || res.Record.Number != "strong" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// scriptedRegistry backs the default license strategies in tests.
type scriptedRegistry struct {
	byNumber map[string]resolve.Record
	byName   map[string]resolve.Record
	byOwner  map[string]resolve.Record
	queries  []string
}

func (s *scriptedRegistry) ByLicenseNumber(_ context.Context, q string) (resolve.Record, error) {
	s.queries = append(s.queries, "number:"+q)
	return s.byNumber[q], nil
}

func (s *scriptedRegistry) ByBusinessName(_ context.Context, q string) (resolve.Record, error) {
	s.queries = append(s.queries, "name:"+q)
	return s.byName[q], nil
}

func (s *scriptedRegistry) ByOwnerName(_ context.Context, q string) (resolve.Record, error) {
	s.queries = append(s.queries, "owner:"+q)
	return s.byOwner[q], nil
}

func TestDefaultStrategies_OwnerNameIsNormalized(t *testing.T) {
	t.Parallel()

	reg := &scriptedRegistry{
		byOwner: map[string]resolve.Record{
			"Sofia Garcia": {Number: "L-77", HolderName: "Sofia Garcia", Status: "active"},
		},
	}
	r := resolve.New(resolve.DefaultStrategies(reg), nil)

	res, err := r.Resolve(context.Background(), resolve.Inputs{OwnerName: "Sofía García"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != "owner_name" || res.Record.Number != "L-77" {
		t.Fatalf("unexpected result: %+v", res)
	}
	// The registry must only ever see ASCII.
	for _, q := range reg.queries {
		for _, r := range q {
			if r > 127 {
				t.Fatalf("non-ASCII query reached the registry: %q", q)
			}
		}
	}
}

func TestDefaultStrategies_LocalityScopedNameIsLastResort(t *testing.T) {
	t.Parallel()

	// The record is registered under a locality-qualified legal name, so the
	// bare business-name rung misses and the locality-scoped one hits.
	reg := &scriptedRegistry{
		byName: map[string]resolve.Record{
			"Vista Roofing Oceanside": {Number: "B-9", Status: "active"},
		},
	}
	r := resolve.New(resolve.DefaultStrategies(reg), nil)

	res, err := r.Resolve(context.Background(), resolve.Inputs{
		BusinessName: "Vista Roofing",
		Locality:     "Oceanside",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != "name_locality" || res.Attempts != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	// The scoped query goes to the business-name endpoint, never the owner one.
	want := []string{"name:Vista Roofing", "name:Vista Roofing Oceanside"}
	if diff := cmp.Diff(want, reg.queries); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultStrategies_LicenseNumberOutranksName(t *testing.T) {
	t.Parallel()

	reg := &scriptedRegistry{
		byNumber: map[string]resolve.Record{"B-1": {Number: "B-1", Status: "active"}},
		byName:   map[string]resolve.Record{"Vista Roofing": {Number: "B-2", Status: "active"}},
	}
	r := resolve.New(resolve.DefaultStrategies(reg), nil)

	res, err := r.Resolve(context.Background(), resolve.Inputs{
		LicenseNumber: "B-1",
		BusinessName:  "Vista Roofing",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != "license_number" || res.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}
