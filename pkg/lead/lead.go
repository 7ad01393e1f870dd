// Package lead defines the inbound lead record consumed by the qualification
// pipeline. Leads are created by the surrounding system (scrapers, imports)
// and are read-only to the decision core.
package lead

import (
	"fmt"
	"strings"
)

// Lead identifies one prospective business.
//
// Everything is a string or a small scalar to keep CSV/JSON boundaries simple
// and stable.
type Lead struct {
	ID           string  `json:"id"`
	BusinessName string  `json:"business_name"`
	Website      string  `json:"website"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	City         string  `json:"city"`
	Region       string  `json:"region"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"review_count"`

	// LicenseNumber is optional; when present it feeds the highest-priority
	// identity-resolution strategy.
	LicenseNumber string `json:"license_number,omitempty"`
}

// HasWebsite reports whether the lead carries a usable website URL.
func (l Lead) HasWebsite() bool {
	return strings.TrimSpace(l.Website) != ""
}

// ValidationError reports a lead that cannot enter the pipeline at all.
// It is the only pre-stage failure class: the orchestrator maps it to a
// terminal FAILED run before any provider is called.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid lead: %s %s", e.Field, e.Reason)
}

// Validate checks the mandatory fields required before processing can start.
func Validate(l Lead) error {
	if strings.TrimSpace(l.ID) == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	if strings.TrimSpace(l.BusinessName) == "" {
		return &ValidationError{Field: "business_name", Reason: "is required"}
	}
	if l.Rating < 0 || l.Rating > 5 {
		return &ValidationError{Field: "rating", Reason: "must be within 0..5"}
	}
	if l.ReviewCount < 0 {
		return &ValidationError{Field: "review_count", Reason: "must not be negative"}
	}
	return nil
}
