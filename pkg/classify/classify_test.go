package classify_test

import (
	"strings"
	"testing"

	"github.com/leadscope/lead-qualifier/pkg/classify"
	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/score"
)

func classifyLead() lead.Lead {
	return lead.Lead{ID: "lead-2", BusinessName: "Delta Electric", Website: "https://delta.example"}
}

func TestClassify_NoWebsiteAlwaysWins(t *testing.T) {
	t.Parallel()

	// Pile on every other persona's trigger: no website must still win.
	snap := enrich.Neutral("lead-2", false)
	snap.Visual.Score = 10
	snap.Performance.Score = 10
	snap.Tech.HasCRM = false
	snap.Tech.HasBookingSystem = false
	snap.Reputation.RatingGap = 3.0
	snap.Reputation.ComplaintCount = 5

	signals := []score.Signal{
		{Name: "low_visual_score", Points: 12},
		{Name: "poor_performance", Points: 10},
		{Name: "reputation_gap", Points: 10},
	}

	l := classifyLead()
	l.Website = ""
	got := classify.Default().Classify(l, snap, signals)
	if got.Category != classify.TheInvisible {
		t.Fatalf("expected THE_INVISIBLE, got %s", got.Category)
	}
	if got.Confidence != classify.ConfidenceHigh {
		t.Fatalf("expected high confidence, got %s", got.Confidence)
	}
	if !strings.Contains(got.Reason, "no website") {
		t.Fatalf("reason should mention the missing website: %q", got.Reason)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	t.Parallel()

	// Both the outdated and slow personas match; outdated is earlier in the
	// table and must win without the slow rule being consulted.
	snap := enrich.Neutral("lead-2", true)
	snap.Visual.Score = 20
	snap.Performance.Score = 30

	signals := []score.Signal{
		{Name: "low_visual_score", Points: 12},
		{Name: "poor_performance", Points: 10},
	}
	got := classify.Default().Classify(classifyLead(), snap, signals)
	if got.Category != classify.TheOutdated {
		t.Fatalf("expected THE_OUTDATED, got %s", got.Category)
	}
}

func TestClassify_PersonaTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		prep    func(*enrich.Snapshot)
		signals []score.Signal
		want    classify.Category
	}{
		{
			name: "slow site",
			prep: func(s *enrich.Snapshot) { s.Performance.Score = 35 },
			signals: []score.Signal{
				{Name: "poor_performance", Points: 10},
			},
			want: classify.TheSlow,
		},
		{
			name: "manual operation",
			prep: func(s *enrich.Snapshot) {
				s.Tech.HasCRM = false
				s.Tech.HasBookingSystem = false
			},
			want: classify.TheManual,
		},
		{
			name: "reputation problem",
			prep: func(s *enrich.Snapshot) { s.Reputation.ComplaintCount = 3 },
			want: classify.TheExposed,
		},
		{
			name: "nothing matches",
			prep: func(*enrich.Snapshot) {},
			want: classify.Uncategorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			snap := enrich.Neutral("lead-2", true)
			tc.prep(&snap)
			got := classify.Default().Classify(classifyLead(), snap, tc.signals)
			if got.Category != tc.want {
				t.Fatalf("expected %s, got %s (%q)", tc.want, got.Category, got.Reason)
			}
			if tc.want == classify.Uncategorized && got.Confidence != classify.ConfidenceLow {
				t.Fatalf("fallback must be low confidence, got %s", got.Confidence)
			}
			if got.Reason == "" {
				t.Fatal("every assignment must carry a reason")
			}
		})
	}
}
