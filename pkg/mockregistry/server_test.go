package mockregistry_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/leadscope/lead-qualifier/internal/registry"
	"github.com/leadscope/lead-qualifier/pkg/mockregistry"
	"github.com/leadscope/lead-qualifier/pkg/resolve"
)

func newResolver(t *testing.T) (*mockregistry.Server, *resolve.Resolver) {
	t.Helper()

	mock := mockregistry.New()
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	client, err := registry.NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return mock, resolve.New(resolve.DefaultStrategies(client), nil)
}

func TestResolveAgainstMockRegistry(t *testing.T) {
	t.Parallel()

	mock, r := newResolver(t)
	mock.Add(resolve.Record{Number: "C-100", HolderName: "Ace Plumbing LLC", Status: "active"}, "Ace Plumbing", "Jordan Reyes")

	t.Run("license number wins first", func(t *testing.T) {
		t.Parallel()

		res, err := r.Resolve(context.Background(), resolve.Inputs{
			LicenseNumber: "C-100",
			BusinessName:  "Ace Plumbing",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Found || res.Method != "license_number" || res.Attempts != 1 {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("falls through to business name", func(t *testing.T) {
		t.Parallel()

		res, err := r.Resolve(context.Background(), resolve.Inputs{
			LicenseNumber: "C-999",
			BusinessName:  "Ace Plumbing",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Found || res.Method != "business_name" || res.Attempts != 2 {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.Record.Number != "C-100" {
			t.Fatalf("unexpected record: %+v", res.Record)
		}
	})

	t.Run("owner name with diacritics", func(t *testing.T) {
		t.Parallel()

		mock.Add(resolve.Record{Number: "C-200", HolderName: "Sofia Garcia", Status: "active"}, "", "Sofia Garcia")
		res, err := r.Resolve(context.Background(), resolve.Inputs{
			OwnerName: "Sofía García",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Found || res.Record.Number != "C-200" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("locality-qualified registration matches scoped search", func(t *testing.T) {
		t.Parallel()

		mock.Add(resolve.Record{Number: "C-300", HolderName: "Vista Roofing of Oceanside", Status: "active"}, "Vista Roofing Oceanside", "")
		res, err := r.Resolve(context.Background(), resolve.Inputs{
			BusinessName: "Vista Roofing",
			Locality:     "Oceanside",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Found || res.Method != "name_locality" || res.Record.Number != "C-300" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("exhausted when nothing matches", func(t *testing.T) {
		t.Parallel()

		res, err := r.Resolve(context.Background(), resolve.Inputs{
			BusinessName: "Ghost Contracting",
		})
		if err == nil || res.Found {
			t.Fatalf("expected exhaustion, got %+v (err %v)", res, err)
		}
		if len(res.Trail) == 0 {
			t.Fatal("exhausted result must carry the attempt trail")
		}
	})
}
