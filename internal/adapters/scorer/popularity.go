package scorer

import (
	"fmt"
	"sort"
	"strings"

	"trendsiam/internal/domain"
)

// PopularityScorer считает балл популярности из трёх независимых слагаемых:
// охват (0–35), вовлечённость (0–58) и лексические сигналы (0–22).
// Точный балл может превышать 100 и используется только для ранжирования;
// отображаемый балл ограничен сотней.
type PopularityScorer struct{}

// NewPopularity создаёт скорер.
func NewPopularity() *PopularityScorer {
	return &PopularityScorer{}
}

var _ domain.Scorer = (*PopularityScorer)(nil)

const (
	reachCap      = 35.0
	engagementCap = 58.0
	lexicalCap    = 22.0
	displayCap    = 100
)

// Score возвращает точный балл, отображаемый балл и объяснение.
// Объяснение собирается детерминированным шаблоном из тех же промежуточных
// чисел, поэтому одинаковый вход всегда даёт одинаковую строку.
func (s *PopularityScorer) Score(item domain.RawItem) (float64, int, string) {
	reach, reachLabel := reachScore(item.Views)
	engagement, likePct, commentPct, engLabel := engagementScore(item.Views, item.Likes, item.Comments)
	lexical, signals := lexicalScore(item.Title, item.Description)

	precise := reach + engagement + lexical
	display := int(precise)
	if display > displayCap {
		display = displayCap
	}

	explanation := buildExplanation(item.Views, reachLabel, likePct, commentPct, engLabel, signals)
	return precise, display, explanation
}

// reachScore интерполирует охват по полосам просмотров. Плоские полосы
// уравняли бы все вирусные ролики, поэтому сверх миллиона начисляется
// бонус min(extra/1e6, 5).
func reachScore(views int64) (float64, string) {
	v := float64(views)
	switch {
	case views <= 0:
		return 5, "minimal"
	case views < 1_000:
		return interpolate(v, 0, 1_000, 5, 10), "minimal"
	case views < 10_000:
		return interpolate(v, 1_000, 10_000, 10, 15), "small"
	case views < 100_000:
		return interpolate(v, 10_000, 100_000, 15, 20), "medium"
	case views < 1_000_000:
		return interpolate(v, 100_000, 1_000_000, 20, 30), "large"
	default:
		bonus := (v - 1_000_000) / 1_000_000
		if bonus > 5 {
			bonus = 5
		}
		return 30 + bonus, "viral"
	}
}

// engagementScore интерполирует отношения лайков и комментариев к просмотрам.
// Нулевые просмотры дают ноль, чтобы не делить на ноль.
func engagementScore(views, likes, comments int64) (score, likePct, commentPct float64, label string) {
	if views <= 0 {
		return 0, 0, 0, "none"
	}
	likeRate := float64(likes) / float64(views)
	commentRate := float64(comments) / float64(views)
	likePct = likeRate * 100
	commentPct = commentRate * 100

	likeScore := ratioScore(likeRate, 0.01, 0.05)
	commentScore := ratioScore(commentRate, 0.001, 0.01)

	score = likeScore + commentScore
	if score > engagementCap {
		score = engagementCap
	}

	switch {
	case score >= 40:
		label = "high"
	case score >= 20:
		label = "moderate"
	default:
		label = "low"
	}
	return score, likePct, commentPct, label
}

// ratioScore интерполирует одно отношение по трём полосам (0–10, 10–20, 20–25)
// и добавляет бонус до 4 за исключительно высокие значения.
func ratioScore(rate, low, high float64) float64 {
	var base float64
	switch {
	case rate <= 0:
		return 0
	case rate < low:
		base = interpolate(rate, 0, low, 0, 10)
	case rate < high:
		base = interpolate(rate, low, high, 10, 20)
	default:
		base = interpolate(rate, high, high*4, 20, 25)
		if base > 25 {
			base = 25
		}
	}
	if rate > high*2 {
		bonus := (rate - high*2) / high
		if bonus > 4 {
			bonus = 4
		}
		base += bonus
	}
	return base
}

// signalCategory — одна категория лексических сигналов. Таблица — данные,
// порядок объявления фиксирует порядок перечисления в объяснении.
type signalCategory struct {
	name     string
	weight   float64
	keywords []string
}

var signalCategories = []signalCategory{
	{name: "live/urgent", weight: 3, keywords: []string{"live", "breaking", "urgent", "ด่วน", "สด", "แถลง"}},
	{name: "celebrity", weight: 2.5, keywords: []string{"celebrity", "star", "idol", "ดารา", "นักร้อง", "ซุปตาร์"}},
	{name: "viral", weight: 2.5, keywords: []string{"viral", "trending", "tiktok", "ไวรัล", "กระแส", "แห่แชร์"}},
	{name: "exclusive", weight: 2, keywords: []string{"exclusive", "first time", "reveal", "เปิดตัว", "ครั้งแรก", "เผย"}},
}

const (
	titleBonus     = 1.0
	diversityBonus = 2.0
)

// lexicalScore сканирует заголовок и описание по курируемым категориям
// ключевых слов. Совпадение в заголовке ценится выше совпадения в описании,
// наличие сигналов из разных категорий даёт бонус за разнообразие.
func lexicalScore(title, description string) (float64, []string) {
	titleLower := strings.ToLower(title)
	descLower := strings.ToLower(description)

	var score float64
	var matched []string
	for _, cat := range signalCategories {
		categoryHit := false
		for _, kw := range cat.keywords {
			inTitle := strings.Contains(titleLower, kw)
			inDesc := strings.Contains(descLower, kw)
			if !inTitle && !inDesc {
				continue
			}
			categoryHit = true
			score += cat.weight
			if inTitle {
				score += titleBonus
			}
		}
		if categoryHit {
			matched = append(matched, cat.name)
		}
	}
	if len(matched) > 1 {
		score += diversityBonus
	}
	if score > lexicalCap {
		score = lexicalCap
	}
	return score, matched
}

func interpolate(v, fromLow, fromHigh, toLow, toHigh float64) float64 {
	if fromHigh <= fromLow {
		return toLow
	}
	if v <= fromLow {
		return toLow
	}
	if v >= fromHigh {
		return toHigh
	}
	return toLow + (v-fromLow)/(fromHigh-fromLow)*(toHigh-toLow)
}

func buildExplanation(views int64, reachLabel string, likePct, commentPct float64, engLabel string, signals []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Views: %s (%s reach). ", formatViews(views), reachLabel)
	fmt.Fprintf(&b, "Engagement: likes %.1f%%, comments %.1f%% (%s).", likePct, commentPct, engLabel)
	if len(signals) > 0 {
		sorted := append([]string(nil), signals...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, " Signals: %s.", strings.Join(sorted, ", "))
	}
	return b.String()
}

func formatViews(views int64) string {
	switch {
	case views >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(views)/1_000_000)
	case views >= 1_000:
		return fmt.Sprintf("%.1fK", float64(views)/1_000)
	default:
		return fmt.Sprintf("%d", views)
	}
}
