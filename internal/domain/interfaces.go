package domain

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyFeed возвращается, когда источник не отдал ни одного элемента
// и исторический фолбэк не разрешён конфигурацией.
var ErrEmptyFeed = errors.New("источник вернул пустой фид")

// ErrMockContent возвращается в строгом режиме, если в резюме найден
// заглушечный контент; запуск прерывается до любой записи.
var ErrMockContent = errors.New("в данных обнаружен заглушечный контент")

// ErrPartialWrite сигнализирует, что часть чанков не записалась; уже
// зафиксированные чанки не откатываются.
var ErrPartialWrite = errors.New("часть записей не сохранена")

// ContentSource отдаёт сырые элементы трендового фида.
type ContentSource interface {
	FetchTrending(ctx context.Context, limit int) ([]RawItem, error)
}

// Scorer считает популярность элемента: точный балл для ранжирования,
// ограниченный балл для отображения и детерминированное объяснение.
type Scorer interface {
	Score(item RawItem) (precise float64, display int, explanation string)
}

// Classifier определяет категорию по взвешенным ключевым словам.
// Summary передаётся пустым, если суммаризация не удалась.
type Classifier interface {
	Classify(item RawItem, summary string) (category, parent string, matchScore int)
}

// Ranker упорядочивает элементы воспроизводимо и проставляет rank 1..N.
// Его порядок авторитетен: ни менеджер иллюстраций, ни писатель его не пересчитывают.
type Ranker interface {
	Rank(items []ScoredItem) []RankedItem
}

// Summarizer строит пару резюме по заголовку и описанию.
type Summarizer interface {
	Summarize(ctx context.Context, title, description string) (SummaryPair, error)
}

// ImageGenerator обращается к внешнему сервису генерации иллюстраций.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (url string, err error)
}

// StoryRepo управляет каноническими записями историй.
type StoryRepo interface {
	UpsertStories(ctx context.Context, stories []Story) (int, error)
	GetStory(ctx context.Context, id StoryID) (Story, bool, error)
}

// SnapshotRepo управляет фактами запусков.
type SnapshotRepo interface {
	UpsertSnapshots(ctx context.Context, snapshots []Snapshot) (int, error)
	ListByDate(ctx context.Context, date time.Time) ([]Snapshot, error)
	// LatestReadyImage возвращает последнюю подтверждённую иллюстрацию истории.
	LatestReadyImage(ctx context.Context, id StoryID) (url string, ok bool, err error)
	// LatestImageStatus возвращает статус иллюстрации из последнего снапшота истории.
	LatestImageStatus(ctx context.Context, id StoryID) (ImageStatus, bool, error)
}

// MetaRepo хранит ключи метаданных конвейера, в том числе сигнал свежести.
type MetaRepo interface {
	TouchFreshness(ctx context.Context, at time.Time) error
}

// FreshnessSignal сбрасывает кэши потребителей после успешной записи.
type FreshnessSignal interface {
	Touch(ctx context.Context, at time.Time) error
}

// RunLock защищает от параллельного запуска конвейера.
type RunLock interface {
	// Acquire возвращает false, если запуск уже идёт.
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}
