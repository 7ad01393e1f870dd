package consumer

import (
	"context"
	"testing"

	"github.com/leadscope/lead-qualifier/pkg/classify"
	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/mockregistry"
	"github.com/leadscope/lead-qualifier/pkg/pipeline/worker"
	"github.com/leadscope/lead-qualifier/pkg/score"
)

func TestPublicPackagesCompile(t *testing.T) {
	t.Parallel()

	l := lead.Lead{ID: "x", BusinessName: "Consumer Test Co"}
	snap := enrich.Neutral(l.ID, false)

	res := score.Score(l, snap, score.FullRuleSet())
	if res.Score == 0 {
		t.Fatalf("no-website lead must carry pain signals: %+v", res)
	}

	if got := classify.Default().Classify(l, snap, res.Signals); got.Category != classify.TheInvisible {
		t.Fatalf("unexpected persona: %+v", got)
	}

	srv := mockregistry.New()
	if srv.Handler() == nil {
		t.Fatal("handler must not be nil")
	}

	out, err := worker.Run(context.Background(), []string{"x"}, func(_ context.Context, in string) (string, error) {
		return in, nil
	}, worker.Options{Workers: 1})
	if err != nil || len(out) != 1 {
		t.Fatalf("worker.Run failed: %v", err)
	}
}
