package score

import "fmt"

// Built-in rule set names.
const (
	RuleSetPrequal = "prequal"
	RuleSetFull    = "full"
	RuleSetBlended = "blended"
)

// rule builds a Rule bound to a registered predicate. Panics on an unknown
// signal name: the built-in tables are fixed at init time.
func rule(signal string, points int, cat Category) Rule {
	p, ok := PredicateFor(signal)
	if !ok {
		panic(fmt.Sprintf("score: unknown signal %q", signal))
	}
	return Rule{Signal: signal, Points: points, Category: cat, When: p}
}

func disqualifier(signal string, cat Category) Rule {
	r := rule(signal, 0, cat)
	r.Disqualifier = true
	return r
}

func licenseDisqualifiers() []Rule {
	return []Rule{
		disqualifier("license_expired", CategoryLicensing),
		disqualifier("license_suspended", CategoryLicensing),
		disqualifier("license_revoked", CategoryLicensing),
	}
}

// PrequalRuleSet scores only free signals available before any paid
// enrichment: ratings, reviews, directory presence, website existence.
func PrequalRuleSet() RuleSet {
	return RuleSet{
		Name: RuleSetPrequal,
		Rules: append(licenseDisqualifiers(),
			rule("no_website", 3, CategoryPresence),
			// NOTE: no_booking_system is deliberately 2 here and 1 in the
			// blended set. The weights were tuned per campaign and are kept
			// as separate documented configurations.
			rule("no_booking_system", 2, CategoryTech),
			rule("low_rating", 2, CategoryReputation),
			rule("few_reviews", 2, CategoryReputation),
			rule("reputation_gap", 2, CategoryReputation),
			rule("weak_directory_presence", 1, CategoryPresence),
			rule("inconsistent_nap", 1, CategoryPresence),
		),
		RejectMax:      3,
		MarginalMax:    5,
		TopSignalCount: 3,
	}
}

// FullRuleSet is the paid-enrichment scoring configuration used once the
// complete snapshot is available.
func FullRuleSet() RuleSet {
	return RuleSet{
		Name: RuleSetFull,
		Rules: append(licenseDisqualifiers(),
			rule("no_website", 25, CategoryPresence),
			rule("missing_crm", 12, CategoryTech),
			rule("no_booking_system", 8, CategoryTech),
			rule("no_analytics", 4, CategoryTech),
			rule("no_chat_widget", 2, CategoryTech),
			rule("outdated_cms", 6, CategoryTech),
			rule("low_visual_score", 12, CategoryWebsite),
			rule("not_mobile_friendly", 6, CategoryWebsite),
			rule("poor_performance", 10, CategoryPerformance),
			rule("slow_full_load", 4, CategoryPerformance),
			rule("weak_directory_presence", 3, CategoryPresence),
			rule("inconsistent_nap", 3, CategoryPresence),
			rule("reputation_gap", 10, CategoryReputation),
			rule("low_rating", 4, CategoryReputation),
			rule("few_reviews", 3, CategoryReputation),
			rule("active_complaints", -5, CategoryReputation),
			rule("residential_address", 3, CategoryPresence),
			rule("po_box_address", 2, CategoryPresence),
		),
		RejectMax:      40,
		MarginalMax:    50,
		TopSignalCount: 5,
	}
}

// BlendedRuleSet mixes the full snapshot with AI-derived tech signals and its
// own threshold tuning.
func BlendedRuleSet() RuleSet {
	return RuleSet{
		Name: RuleSetBlended,
		Rules: append(licenseDisqualifiers(),
			rule("no_website", 20, CategoryPresence),
			rule("missing_crm", 10, CategoryTech),
			// See the note in PrequalRuleSet: 1 point here, 2 there.
			rule("no_booking_system", 1, CategoryTech),
			rule("no_analytics", 3, CategoryTech),
			rule("outdated_cms", 8, CategoryTech),
			rule("low_visual_score", 10, CategoryWebsite),
			rule("not_mobile_friendly", 5, CategoryWebsite),
			rule("poor_performance", 8, CategoryPerformance),
			rule("reputation_gap", 8, CategoryReputation),
			rule("low_rating", 3, CategoryReputation),
			rule("active_complaints", -4, CategoryReputation),
			rule("residential_address", 2, CategoryPresence),
		),
		RejectMax:      35,
		MarginalMax:    45,
		TopSignalCount: 5,
	}
}

// RuleSetByName returns a built-in rule set.
func RuleSetByName(name string) (RuleSet, error) {
	switch name {
	case RuleSetPrequal:
		return PrequalRuleSet(), nil
	case RuleSetFull:
		return FullRuleSet(), nil
	case RuleSetBlended:
		return BlendedRuleSet(), nil
	default:
		return RuleSet{}, fmt.Errorf("unknown rule set %q", name)
	}
}
