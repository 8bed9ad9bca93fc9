package models

import "testing"

func TestPlanSharesSplitsByVoteCount(t *testing.T) {
	t.Parallel()

	shares := PlanShares([]EventPlan{
		{ID: "p1", Votes: 3},
		{ID: "p2", Votes: 1},
	})
	if got := shares["p1"]; got != 0.75 {
		t.Fatalf("share p1 = %v, want 0.75", got)
	}
	if got := shares["p2"]; got != 0.25 {
		t.Fatalf("share p2 = %v, want 0.25", got)
	}
}

func TestPlanSharesWithNoVotesIsAllZero(t *testing.T) {
	t.Parallel()

	shares := PlanShares([]EventPlan{
		{ID: "p1"},
		{ID: "p2"},
	})
	if len(shares) != 2 {
		t.Fatalf("shares len = %d, want 2", len(shares))
	}
	for id, share := range shares {
		if share != 0 {
			t.Fatalf("share %s = %v, want 0", id, share)
		}
	}
}

func TestPlanSharesEmpty(t *testing.T) {
	t.Parallel()

	if got := PlanShares(nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}
