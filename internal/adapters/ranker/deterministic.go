package ranker

import (
	"sort"

	"trendsiam/internal/domain"
)

// DeterministicRanker упорядочивает элементы по точному баллу (по убыванию)
// с ничьёй по идентификатору истории (по возрастанию). Привязка к stable id,
// а не ко времени обработки, даёт воспроизводимый порядок между запусками.
type DeterministicRanker struct{}

// NewDeterministic создаёт ранжировщик.
func NewDeterministic() *DeterministicRanker {
	return &DeterministicRanker{}
}

var _ domain.Ranker = (*DeterministicRanker)(nil)

// Rank возвращает копию входа с проставленными позициями 1..N.
func (r *DeterministicRanker) Rank(items []domain.ScoredItem) []domain.RankedItem {
	sorted := append([]domain.ScoredItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ScorePrecise != sorted[j].ScorePrecise {
			return sorted[i].ScorePrecise > sorted[j].ScorePrecise
		}
		return sorted[i].StoryID < sorted[j].StoryID
	})
	ranked := make([]domain.RankedItem, 0, len(sorted))
	for idx, item := range sorted {
		ranked = append(ranked, domain.RankedItem{ScoredItem: item, Rank: idx + 1})
	}
	return ranked
}
