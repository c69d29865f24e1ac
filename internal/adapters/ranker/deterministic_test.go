package ranker

import (
	"testing"

	"trendsiam/internal/domain"
)

func TestRankOrdersByPreciseScore(t *testing.T) {
	r := NewDeterministic()
	ranked := r.Rank([]domain.ScoredItem{
		{StoryID: "aaa", ScorePrecise: 42.3},
		{StoryID: "bbb", ScorePrecise: 101.5},
		{StoryID: "ccc", ScorePrecise: 77.0},
	})
	if len(ranked) != 3 {
		t.Fatalf("ожидали 3 элемента, получили %d", len(ranked))
	}
	if ranked[0].StoryID != "bbb" || ranked[0].Rank != 1 {
		t.Fatalf("ожидали bbb первым, получили %s (rank %d)", ranked[0].StoryID, ranked[0].Rank)
	}
	if ranked[2].StoryID != "aaa" || ranked[2].Rank != 3 {
		t.Fatalf("ожидали aaa последним, получили %s (rank %d)", ranked[2].StoryID, ranked[2].Rank)
	}
}

func TestRankTieBreaksByStoryID(t *testing.T) {
	r := NewDeterministic()
	ranked := r.Rank([]domain.ScoredItem{
		{StoryID: "zzz", ScorePrecise: 50},
		{StoryID: "aaa", ScorePrecise: 50},
		{StoryID: "mmm", ScorePrecise: 50},
	})
	order := []domain.StoryID{"aaa", "mmm", "zzz"}
	for i, want := range order {
		if ranked[i].StoryID != want {
			t.Fatalf("позиция %d: ожидали %s, получили %s", i+1, want, ranked[i].StoryID)
		}
	}
}

func TestRankDeterministicAcrossInvocations(t *testing.T) {
	r := NewDeterministic()
	items := []domain.ScoredItem{
		{StoryID: "b", ScorePrecise: 10},
		{StoryID: "a", ScorePrecise: 10},
		{StoryID: "c", ScorePrecise: 99},
	}
	first := r.Rank(items)
	second := r.Rank(items)
	for i := range first {
		if first[i].StoryID != second[i].StoryID || first[i].Rank != second[i].Rank {
			t.Fatalf("повторный вызов изменил порядок на позиции %d", i)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	r := NewDeterministic()
	items := []domain.ScoredItem{
		{StoryID: "b", ScorePrecise: 1},
		{StoryID: "a", ScorePrecise: 2},
	}
	r.Rank(items)
	if items[0].StoryID != "b" {
		t.Fatalf("ранжировщик не должен изменять входной срез")
	}
}
