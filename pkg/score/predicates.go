package score

import (
	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
)

// outdatedCMS lists platforms that reliably indicate a neglected website.
var outdatedCMS = map[string]bool{
	"joomla":      true,
	"frontpage":   true,
	"dreamweaver": true,
	"flash":       true,
}

// predicates is the registry keyed by signal name. YAML-loaded rule sets bind
// to predicates through this table, so the set of known signals is closed.
var predicates = map[string]Predicate{
	"no_website": func(_ lead.Lead, s enrich.Snapshot) bool {
		return !s.HasWebsite
	},
	"missing_crm": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.HasWebsite && !s.Tech.HasCRM
	},
	"no_booking_system": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.HasWebsite && !s.Tech.HasBookingSystem
	},
	"no_analytics": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.HasWebsite && !s.Tech.HasAnalytics
	},
	"no_chat_widget": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.HasWebsite && !s.Tech.HasChatWidget
	},
	"outdated_cms": func(_ lead.Lead, s enrich.Snapshot) bool {
		return outdatedCMS[s.Tech.CMS]
	},
	"low_visual_score": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.HasWebsite && s.Visual.Score < 40
	},
	"not_mobile_friendly": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.HasWebsite && !s.Visual.MobileFriendly
	},
	"poor_performance": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.HasWebsite && s.Performance.Score < 50
	},
	"slow_full_load": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.HasWebsite && s.Performance.FullLoadSeconds > 6
	},
	"weak_directory_presence": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.Directory.ListingCount < 3
	},
	"inconsistent_nap": func(_ lead.Lead, s enrich.Snapshot) bool {
		return !s.Directory.ConsistentNAP
	},
	"reputation_gap": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.Reputation.RatingGap >= 2.0
	},
	"low_rating": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.Reputation.Rating > 0 && s.Reputation.Rating < 4.0
	},
	"few_reviews": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.Reputation.ReviewCount < 10
	},
	"active_complaints": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.Reputation.ComplaintCount > 0
	},
	"residential_address": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.Address.Type == enrich.AddressResidential
	},
	"po_box_address": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.Address.Type == enrich.AddressPOBox
	},
	"license_expired": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.License.Found && s.License.Status == enrich.LicenseExpired
	},
	"license_suspended": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.License.Found && s.License.Status == enrich.LicenseSuspended
	},
	"license_revoked": func(_ lead.Lead, s enrich.Snapshot) bool {
		return s.License.Found && s.License.Status == enrich.LicenseRevoked
	},
}

// PredicateFor looks a predicate up by signal name.
func PredicateFor(signal string) (Predicate, bool) {
	p, ok := predicates[signal]
	return p, ok
}
