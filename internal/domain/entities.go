package domain

import "time"

// RawItem — элемент трендового фида, как его отдал источник. Не изменяется после приёма.
type RawItem struct {
	SourceID    string
	Platform    string
	PublishedAt time.Time
	// PublishedRaw хранит исходную строку даты; пустая строка означает,
	// что дата не распарсилась и PublishedAt подставлен временем приёма.
	PublishedRaw string
	Title        string
	Description  string
	Channel      string
	Views        int64
	Likes        int64
	Comments     int64
}

// StoryID — стабильный идентификатор истории, общий для всех запусков.
type StoryID string

// Story — каноническая запись об одной истории. Создаётся при первом появлении
// тройки (source_id, platform, publish_time), далее только обновляется.
type Story struct {
	ID              StoryID
	SourceID        string
	Platform        string
	PublishedAt     time.Time
	Title           string
	Description     string
	Channel         string
	Category        string
	ParentCategory  string
	SummaryShort    string
	SummaryExtended string
	ImagePrompt     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ImageStatus — состояние иллюстрации истории.
type ImageStatus string

const (
	// ImagePending — иллюстрации ещё нет.
	ImagePending ImageStatus = "pending"
	// ImageGenerating — запрос к сервису генерации в полёте.
	ImageGenerating ImageStatus = "generating"
	// ImageReady — есть проверенная иллюстрация.
	ImageReady ImageStatus = "ready"
	// ImageFailed — попытки генерации исчерпаны.
	ImageFailed ImageStatus = "failed"
	// ImageSkipped — история вне топ-K, генерация не запускалась.
	ImageSkipped ImageStatus = "n/a"
)

// Snapshot — факт одного запуска по одной истории. Дневной срез уникален по
// (story_id, snapshot_date): повторный запуск в тот же день обновляет его на
// месте, срезы прошлых дней никогда не трогаются.
type Snapshot struct {
	StoryID      StoryID
	Date         time.Time
	RunID        string
	Rank         int
	Views        int64
	Likes        int64
	Comments     int64
	Score        int
	ScorePrecise float64
	ImageURL     string
	ImageStatus  ImageStatus
	Reason       string
}

// SummaryPair — краткое и расширенное резюме истории.
type SummaryPair struct {
	Short    string
	Extended string
}

// ScoredItem — элемент после скоринга и классификации.
type ScoredItem struct {
	Item           RawItem
	StoryID        StoryID
	ScorePrecise   float64
	Score          int
	Reason         string
	Category       string
	ParentCategory string
	CategoryScore  int
	Summary        SummaryPair
	SummaryOK      bool
}

// RankedItem — элемент с присвоенной позицией (1..N).
type RankedItem struct {
	ScoredItem
	Rank int
}

// RunReport — итог одного запуска конвейера.
type RunReport struct {
	RunID             string
	Date              time.Time
	Fetched           int
	Processed         int
	Skipped           int
	StoriesUpserted   int
	SnapshotsUpserted int
	ImagesGenerated   int
	ImagesFailed      int
	ImagesKept        int
	UnknownCategories int
	SummariesOK       int
	Partial           bool
}

// UnknownRate возвращает долю историй без определённой категории.
func (r RunReport) UnknownRate() float64 {
	if r.Processed == 0 {
		return 0
	}
	return float64(r.UnknownCategories) / float64(r.Processed)
}

// SummaryCoverage возвращает долю историй с успешной суммаризацией.
func (r RunReport) SummaryCoverage() float64 {
	if r.Processed == 0 {
		return 0
	}
	return float64(r.SummariesOK) / float64(r.Processed)
}
