package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"trendsiam/internal/domain"
)

// SimpleSummarizer реализует Summarizer эвристикой: используется, когда
// внешний провайдер не сконфигурирован.
type SimpleSummarizer struct{}

var _ domain.Summarizer = (*SimpleSummarizer)(nil)

// NewSimple создаёт Summarizer.
func NewSimple() *SimpleSummarizer {
	return &SimpleSummarizer{}
}

// Summarize строит краткое резюме из заголовка и расширенное из описания.
func (s *SimpleSummarizer) Summarize(_ context.Context, title, description string) (domain.SummaryPair, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" && description == "" {
		return domain.SummaryPair{}, nil
	}

	short := title
	if short == "" {
		short = firstWords(description, 12)
	}
	short = truncate(short, 120)

	extended := description
	if extended == "" {
		extended = title
	}
	extended = truncate(firstWords(extended, 60), 400)

	return domain.SummaryPair{Short: short, Extended: extended}, nil
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
