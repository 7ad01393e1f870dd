// Package enrich assembles the per-lead enrichment snapshot: one tagged
// record per signal provider, each with an explicit neutral default used when
// the provider is unavailable. The rest of the decision core consumes these
// records without any defensive coercion.
package enrich

// TechSignals describes the marketing/technology stack detected on the
// lead's website.
type TechSignals struct {
	HasCRM           bool     `json:"has_crm"`
	HasBookingSystem bool     `json:"has_booking_system"`
	HasAnalytics     bool     `json:"has_analytics"`
	HasChatWidget    bool     `json:"has_chat_widget"`
	CMS              string   `json:"cms"`
	DetectedTools    []string `json:"detected_tools,omitempty"`
}

// NeutralTech returns the substitute used when the tech provider is
// unavailable. Every capability reads as present so the absence of data never
// manufactures a pain signal.
func NeutralTech() TechSignals {
	return TechSignals{
		HasCRM:           true,
		HasBookingSystem: true,
		HasAnalytics:     true,
		HasChatWidget:    true,
		CMS:              "unknown",
	}
}

// VisualSignals is the visual-quality audit of the lead's website.
type VisualSignals struct {
	Score          int      `json:"score"`
	MobileFriendly bool     `json:"mobile_friendly"`
	Issues         []string `json:"issues,omitempty"`
}

func NeutralVisual() VisualSignals {
	return VisualSignals{Score: 70, MobileFriendly: true}
}

// PerformanceSignals is the page-speed audit of the lead's website.
type PerformanceSignals struct {
	Score           int     `json:"score"`
	MobileScore     int     `json:"mobile_score"`
	FullLoadSeconds float64 `json:"full_load_seconds"`
}

func NeutralPerformance() PerformanceSignals {
	return PerformanceSignals{Score: 70, MobileScore: 70, FullLoadSeconds: 2.5}
}

// DirectorySignals summarizes the lead's presence across business listings.
type DirectorySignals struct {
	ListingCount  int  `json:"listing_count"`
	ConsistentNAP bool `json:"consistent_nap"`
}

func NeutralDirectory() DirectorySignals {
	return DirectorySignals{ListingCount: 5, ConsistentNAP: true}
}

// LicenseStatus is the state of a resolved license/registry record.
type LicenseStatus string

const (
	LicenseActive    LicenseStatus = "active"
	LicenseExpired   LicenseStatus = "expired"
	LicenseSuspended LicenseStatus = "suspended"
	LicenseRevoked   LicenseStatus = "revoked"
	LicenseUnknown   LicenseStatus = "unknown"
)

// LicenseInfo is the identity-resolution outcome mapped into the snapshot.
type LicenseInfo struct {
	Found      bool          `json:"found"`
	Status     LicenseStatus `json:"status"`
	Number     string        `json:"number,omitempty"`
	HolderName string        `json:"holder_name,omitempty"`
	ResolvedBy string        `json:"resolved_by,omitempty"`
	Attempts   int           `json:"attempts"`
}

// NeutralLicense reads as "identity unknown": it neither disqualifies nor
// scores.
func NeutralLicense() LicenseInfo {
	return LicenseInfo{Found: false, Status: LicenseUnknown}
}

// ReputationInfo captures review ratings and complaint history.
type ReputationInfo struct {
	Rating         float64  `json:"rating"`
	ReviewCount    int      `json:"review_count"`
	RatingGap      float64  `json:"rating_gap"`
	ComplaintCount int      `json:"complaint_count"`
	RedFlags       []string `json:"red_flags,omitempty"`
}

func NeutralReputation() ReputationInfo {
	return ReputationInfo{Rating: 4.5, ReviewCount: 50}
}

// AddressType classifies the lead's registered address.
type AddressType string

const (
	AddressCommercial  AddressType = "commercial"
	AddressResidential AddressType = "residential"
	AddressPOBox       AddressType = "po_box"
	AddressVirtual     AddressType = "virtual"
	AddressUnknown     AddressType = "unknown"
)

// AddressInfo is the address-classification record.
type AddressInfo struct {
	Type AddressType `json:"type"`
}

func NeutralAddress() AddressInfo {
	return AddressInfo{Type: AddressUnknown}
}

// IdentitySignals carries the owner/legal-entity candidates extracted for a
// lead. It feeds the identity-resolution waterfall and therefore must be
// fetched before resolution begins.
type IdentitySignals struct {
	OwnerName string   `json:"owner_name,omitempty"`
	LegalName string   `json:"legal_name,omitempty"`
	AltNames  []string `json:"alt_names,omitempty"`
}

func NeutralIdentity() IdentitySignals {
	return IdentitySignals{}
}

// Snapshot is the record-of-records consumed by the scorer and classifier.
// It is created once per pipeline run and treated as immutable afterwards.
type Snapshot struct {
	LeadID     string `json:"lead_id"`
	HasWebsite bool   `json:"has_website"`

	Tech        TechSignals        `json:"tech"`
	Visual      VisualSignals      `json:"visual"`
	Performance PerformanceSignals `json:"performance"`
	Directory   DirectorySignals   `json:"directory"`
	License     LicenseInfo        `json:"license"`
	Reputation  ReputationInfo     `json:"reputation"`
	Address     AddressInfo        `json:"address"`
	Identity    IdentitySignals    `json:"identity"`

	// Degraded lists the providers that fell back to their neutral default.
	Degraded []string `json:"degraded,omitempty"`
}

// Neutral returns a snapshot with every provider record at its neutral
// default.
func Neutral(leadID string, hasWebsite bool) Snapshot {
	return Snapshot{
		LeadID:      leadID,
		HasWebsite:  hasWebsite,
		Tech:        NeutralTech(),
		Visual:      NeutralVisual(),
		Performance: NeutralPerformance(),
		Directory:   NeutralDirectory(),
		License:     NeutralLicense(),
		Reputation:  NeutralReputation(),
		Address:     NeutralAddress(),
		Identity:    NeutralIdentity(),
	}
}
