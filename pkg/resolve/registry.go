package resolve

import (
	"context"
	"strings"
)

// RegistryClient is the external license/registry search surface. Concrete
// clients (state boards, contractor registries) live outside the core.
type RegistryClient interface {
	ByLicenseNumber(ctx context.Context, number string) (Record, error)
	ByBusinessName(ctx context.Context, name string) (Record, error)
	ByOwnerName(ctx context.Context, owner string) (Record, error)
}

// DefaultStrategies returns the standard license-resolution waterfall over a
// registry client, most-trusted first:
//
//  1. exact license number
//  2. normalized business name
//  3. normalized owner name
//  4. normalized business name scoped to locality
func DefaultStrategies(client RegistryClient) []Strategy {
	return []Strategy{
		licenseNumberStrategy{client},
		businessNameStrategy{client},
		ownerNameStrategy{client},
		nameLocalityStrategy{client},
	}
}

type licenseNumberStrategy struct{ client RegistryClient }

func (licenseNumberStrategy) Name() string { return "license_number" }

func (licenseNumberStrategy) BuildQuery(in Inputs) (string, bool) {
	n := strings.TrimSpace(in.LicenseNumber)
	return n, n != ""
}

func (s licenseNumberStrategy) Lookup(ctx context.Context, query string) (Record, error) {
	return s.client.ByLicenseNumber(ctx, query)
}

// An exact number hit is confident as soon as the record carries a status.
func (licenseNumberStrategy) ConfidentMatch(rec Record) bool {
	return rec.Number != "" && rec.Status != ""
}

type businessNameStrategy struct{ client RegistryClient }

func (businessNameStrategy) Name() string { return "business_name" }

func (businessNameStrategy) BuildQuery(in Inputs) (string, bool) {
	n := Normalize(in.BusinessName)
	return n, n != ""
}

func (s businessNameStrategy) Lookup(ctx context.Context, query string) (Record, error) {
	return s.client.ByBusinessName(ctx, query)
}

func (businessNameStrategy) ConfidentMatch(rec Record) bool {
	return rec.Number != ""
}

type ownerNameStrategy struct{ client RegistryClient }

func (ownerNameStrategy) Name() string { return "owner_name" }

func (ownerNameStrategy) BuildQuery(in Inputs) (string, bool) {
	n := Normalize(in.OwnerName)
	return n, n != ""
}

func (s ownerNameStrategy) Lookup(ctx context.Context, query string) (Record, error) {
	return s.client.ByOwnerName(ctx, query)
}

func (ownerNameStrategy) ConfidentMatch(rec Record) bool {
	return rec.Number != ""
}

type nameLocalityStrategy struct{ client RegistryClient }

func (nameLocalityStrategy) Name() string { return "name_locality" }

func (nameLocalityStrategy) BuildQuery(in Inputs) (string, bool) {
	name := Normalize(in.BusinessName)
	loc := Normalize(in.Locality)
	if name == "" || loc == "" {
		return "", false
	}
	return name + " " + loc, true
}

func (s nameLocalityStrategy) Lookup(ctx context.Context, query string) (Record, error) {
	return s.client.ByBusinessName(ctx, query)
}

func (nameLocalityStrategy) ConfidentMatch(rec Record) bool {
	return rec.Number != ""
}
