package classifier

import (
	"regexp"
	"strings"

	"trendsiam/internal/domain"
)

// Веса полей при подсчёте совпадений.
const (
	titleWeight   = 3
	hashtagWeight = 4
	channelWeight = 2
	summaryWeight = 1

	// minMatchScore — минимальная сумма, ниже которой категория не присваивается.
	minMatchScore = 3
)

const (
	// CategoryOther присваивается при сумме ниже порога.
	CategoryOther = "Other"
	// CategoryUnknown присваивается элементам без пригодного текста.
	CategoryUnknown = "Unknown"
)

// KeywordClassifier определяет категорию по взвешенным ключевым словам из
// четырёх полей. Таблица категорий — данные: упорядоченный список, ничья
// разрешается в пользу раньше объявленной категории.
type KeywordClassifier struct {
	categories []Category
}

var _ domain.Classifier = (*KeywordClassifier)(nil)

// NewKeyword создаёт классификатор со встроенной таблицей категорий.
func NewKeyword() *KeywordClassifier {
	return &KeywordClassifier{categories: defaultCategories}
}

// NewKeywordWithTable создаёт классификатор с заданной таблицей.
func NewKeywordWithTable(categories []Category) *KeywordClassifier {
	return &KeywordClassifier{categories: categories}
}

var hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// Classify возвращает категорию, родительскую категорию и сумму совпадений.
// Summary передаётся пустым, если суммаризация не удалась — тогда её
// ключевые слова не участвуют в подсчёте.
func (c *KeywordClassifier) Classify(item domain.RawItem, summary string) (string, string, int) {
	title := strings.ToLower(item.Title)
	channel := strings.ToLower(item.Channel)
	summaryLower := strings.ToLower(summary)

	if strings.TrimSpace(title) == "" && strings.TrimSpace(channel) == "" && strings.TrimSpace(summaryLower) == "" {
		return CategoryUnknown, "", 0
	}

	hashtags := extractHashtags(item.Title + " " + item.Description)

	bestIdx := -1
	bestScore := 0
	for idx, cat := range c.categories {
		score := 0
		for _, kw := range cat.TitleKeywords {
			if strings.Contains(title, kw) {
				score += titleWeight
			}
		}
		for _, kw := range cat.HashtagKeywords {
			if _, ok := hashtags[kw]; ok {
				score += hashtagWeight
			}
		}
		for _, kw := range cat.ChannelKeywords {
			if strings.Contains(channel, kw) {
				score += channelWeight
			}
		}
		if summaryLower != "" {
			for _, kw := range cat.SummaryKeywords {
				if strings.Contains(summaryLower, kw) {
					score += summaryWeight
				}
			}
		}
		// Строгое сравнение сохраняет победу раньше объявленной категории при ничьей.
		if score > bestScore {
			bestScore = score
			bestIdx = idx
		}
	}

	if bestIdx < 0 || bestScore < minMatchScore {
		return CategoryOther, "", bestScore
	}
	winner := c.categories[bestIdx]
	return winner.Name, winner.Parent, bestScore
}

func extractHashtags(text string) map[string]struct{} {
	tags := make(map[string]struct{})
	for _, m := range hashtagRe.FindAllStringSubmatch(text, -1) {
		tags[strings.ToLower(m[1])] = struct{}{}
	}
	return tags
}
