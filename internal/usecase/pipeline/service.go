package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trendsiam/internal/domain"
	"trendsiam/internal/infra/metrics"
	"trendsiam/internal/infra/retry"
)

// Options задаёт параметры одного запуска. Передаётся явно по всей цепочке,
// пакетного изменяемого состояния нет.
type Options struct {
	Limit              int
	TopK               int
	DryRun             bool
	ForceRefreshStats  bool
	StrictRealData     bool
	AllowStaleFallback bool
	ThrottleMin        time.Duration
	ThrottleMax        time.Duration
}

// ImageManager — порт менеджера иллюстраций.
type ImageManager interface {
	EnsureImage(ctx context.Context, item domain.RankedItem, prompt string) (domain.ImageStatus, string)
}

// Service — оркестратор конвейера. Шаги идут в фиксированном порядке:
// суммаризация → скоринг → классификация → ранжирование → иллюстрации →
// запись. Порядок, заданный ранжировщиком, дальше никем не пересчитывается.
type Service struct {
	source     domain.ContentSource
	scorer     domain.Scorer
	classifier domain.Classifier
	ranker     domain.Ranker
	summarizer domain.Summarizer
	images     ImageManager
	stories    domain.StoryRepo
	snapshots  domain.SnapshotRepo
	meta       domain.MetaRepo
	freshness  domain.FreshnessSignal
	sleeper    retry.Sleeper
	clock      func() time.Time
	opts       Options
	log        zerolog.Logger
}

// NewService создаёт оркестратор.
func NewService(
	source domain.ContentSource,
	scorer domain.Scorer,
	classifier domain.Classifier,
	ranker domain.Ranker,
	summarizer domain.Summarizer,
	images ImageManager,
	stories domain.StoryRepo,
	snapshots domain.SnapshotRepo,
	meta domain.MetaRepo,
	freshness domain.FreshnessSignal,
	opts Options,
	logger zerolog.Logger,
) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	return &Service{
		source:     source,
		scorer:     scorer,
		classifier: classifier,
		ranker:     ranker,
		summarizer: summarizer,
		images:     images,
		stories:    stories,
		snapshots:  snapshots,
		meta:       meta,
		freshness:  freshness,
		sleeper:    retry.RealSleeper(),
		clock:      time.Now,
		opts:       opts,
		log:        logger,
	}
}

// mockMarkers — маркеры заглушечного контента для строгого режима.
var mockMarkers = []string{"lorem ipsum", "placeholder", "mock data", "sample data", "ตัวอย่างข้อมูล"}

// Run выполняет один проход конвейера и возвращает отчёт. Ошибка означает
// фатальный сбой до записи; частичный успех отражается в report.Partial.
func (s *Service) Run(ctx context.Context) (domain.RunReport, error) {
	started := s.clock()
	defer func() { metrics.RunDuration.Observe(time.Since(started).Seconds()) }()

	runID := uuid.NewString()
	now := started.UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	report := domain.RunReport{RunID: runID, Date: date}
	runLog := s.log.With().Str("run_id", runID).Logger()

	items, err := s.source.FetchTrending(ctx, s.opts.Limit)
	if err != nil {
		return report, fmt.Errorf("получение фида: %w", err)
	}
	report.Fetched = len(items)
	metrics.ItemsFetched.Set(float64(len(items)))

	if len(items) == 0 {
		if s.opts.AllowStaleFallback {
			return s.runStaleFallback(ctx, runLog, report)
		}
		return report, domain.ErrEmptyFeed
	}

	scored, summariesOK, skippedDuplicates, err := s.deriveAll(ctx, runLog, items)
	if err != nil {
		return report, err
	}
	report.Skipped = skippedDuplicates
	report.Processed = len(scored)
	report.SummariesOK = summariesOK
	for _, item := range scored {
		if item.Category == "Unknown" || item.Category == "Other" {
			report.UnknownCategories++
			metrics.UnknownCategories.Inc()
		}
	}

	ranked := s.ranker.Rank(scored)

	snapshots := s.ensureImages(ctx, runLog, ranked, date, runID, &report)

	if s.opts.DryRun {
		runLog.Info().Int("stories", len(ranked)).Msg("pipeline: dry-run, запись пропущена")
		return report, nil
	}

	stories := buildStories(ranked)
	storedStories, storiesErr := s.stories.UpsertStories(ctx, stories)
	report.StoriesUpserted = storedStories
	storedSnapshots, snapshotsErr := s.snapshots.UpsertSnapshots(ctx, snapshots)
	report.SnapshotsUpserted = storedSnapshots

	if storiesErr != nil || snapshotsErr != nil {
		report.Partial = true
		runLog.Error().AnErr("stories", storiesErr).AnErr("snapshots", snapshotsErr).
			Msg("pipeline: часть записей не сохранена")
	}

	if storedSnapshots > 0 || s.opts.ForceRefreshStats {
		s.touchFreshness(ctx, runLog)
	}

	return report, nil
}

// deriveAll выполняет шаги вывода для каждого элемента: идентичность,
// суммаризация, скоринг, классификация. Дубликаты по идентификатору
// схлопываются, первый экземпляр побеждает.
func (s *Service) deriveAll(ctx context.Context, runLog zerolog.Logger, items []domain.RawItem) ([]domain.ScoredItem, int, int, error) {
	seen := make(map[domain.StoryID]struct{}, len(items))
	scored := make([]domain.ScoredItem, 0, len(items))
	summariesOK := 0
	skipped := 0

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, 0, 0, err
		}
		id := domain.DeriveStoryID(item.SourceID, item.Platform, item.PublishedAt)
		if _, dup := seen[id]; dup {
			skipped++
			runLog.Debug().Str("story", string(id)).Msg("pipeline: дубликат схлопнут")
			continue
		}
		seen[id] = struct{}{}

		summary, summaryOK := s.summarize(ctx, runLog, id, item)
		if summaryOK {
			if err := checkRealData(s.opts.StrictRealData, summary); err != nil {
				return nil, 0, 0, err
			}
			summariesOK++
		}

		precise, display, explanation := s.scorer.Score(item)
		category, parent, matchScore := s.classifier.Classify(item, summary.Short)

		scored = append(scored, domain.ScoredItem{
			Item:           item,
			StoryID:        id,
			ScorePrecise:   precise,
			Score:          display,
			Reason:         explanation,
			Category:       category,
			ParentCategory: parent,
			CategoryScore:  matchScore,
			Summary:        summary,
			SummaryOK:      summaryOK,
		})
	}
	return scored, summariesOK, skipped, nil
}

func (s *Service) summarize(ctx context.Context, runLog zerolog.Logger, id domain.StoryID, item domain.RawItem) (domain.SummaryPair, bool) {
	s.throttle(ctx)
	summary, err := s.summarizer.Summarize(ctx, item.Title, item.Description)
	if err != nil {
		// Неудачная суммаризация деградирует историю, но не валит запуск.
		runLog.Warn().Err(err).Str("story", string(id)).Msg("pipeline: суммаризация не удалась")
		return domain.SummaryPair{}, false
	}
	return summary, true
}

// ensureImages обслуживает топ-K позиций и собирает снапшоты для записи.
// В dry-run внешний сервис не вызывается, топ-K получает pending.
func (s *Service) ensureImages(ctx context.Context, runLog zerolog.Logger, ranked []domain.RankedItem, date time.Time, runID string, report *domain.RunReport) []domain.Snapshot {
	snapshots := make([]domain.Snapshot, 0, len(ranked))
	for _, item := range ranked {
		status := domain.ImageSkipped
		url := ""
		if item.Rank <= s.opts.TopK {
			if s.opts.DryRun {
				status = domain.ImagePending
				runLog.Info().Str("story", string(item.StoryID)).Int("rank", item.Rank).
					Msg("pipeline: dry-run, генерация иллюстрации пропущена")
			} else {
				prompt := domain.BuildImagePrompt(item.Category, item.Item.Title, item.Summary.Short)
				existing, hadExisting, _ := s.snapshots.LatestReadyImage(ctx, item.StoryID)
				s.throttle(ctx)
				status, url = s.images.EnsureImage(ctx, item, prompt)
				switch {
				case status == domain.ImageReady && hadExisting && url == existing:
					report.ImagesKept++
				case status == domain.ImageReady:
					report.ImagesGenerated++
				case status == domain.ImageFailed:
					report.ImagesFailed++
				}
			}
		}
		snapshots = append(snapshots, domain.Snapshot{
			StoryID:      item.StoryID,
			Date:         date,
			RunID:        runID,
			Rank:         item.Rank,
			Views:        item.Item.Views,
			Likes:        item.Item.Likes,
			Comments:     item.Item.Comments,
			Score:        item.Score,
			ScorePrecise: item.ScorePrecise,
			ImageURL:     url,
			ImageStatus:  status,
			Reason:       item.Reason,
		})
	}
	return snapshots
}

// runStaleFallback переносит вчерашние снапшоты на сегодняшнюю дату, когда
// фид пуст, а конфигурация явно разрешает исторический фолбэк.
func (s *Service) runStaleFallback(ctx context.Context, runLog zerolog.Logger, report domain.RunReport) (domain.RunReport, error) {
	yesterday := report.Date.AddDate(0, 0, -1)
	previous, err := s.snapshots.ListByDate(ctx, yesterday)
	if err != nil {
		return report, fmt.Errorf("чтение вчерашних снапшотов: %w", err)
	}
	if len(previous) == 0 {
		return report, domain.ErrEmptyFeed
	}
	runLog.Warn().Int("count", len(previous)).Msg("pipeline: фид пуст, переносим вчерашний срез")

	carried := make([]domain.Snapshot, 0, len(previous))
	for _, snap := range previous {
		snap.Date = report.Date
		snap.RunID = report.RunID
		snap.Reason = strings.TrimSpace("Carried over from previous day. " + snap.Reason)
		carried = append(carried, snap)
	}
	report.Processed = len(carried)
	if s.opts.DryRun {
		return report, nil
	}
	stored, upsertErr := s.snapshots.UpsertSnapshots(ctx, carried)
	report.SnapshotsUpserted = stored
	if upsertErr != nil {
		report.Partial = true
	}
	if stored > 0 {
		s.touchFreshness(ctx, runLog)
	}
	return report, nil
}

func (s *Service) touchFreshness(ctx context.Context, runLog zerolog.Logger) {
	at := s.clock().UTC()
	if err := s.meta.TouchFreshness(ctx, at); err != nil {
		runLog.Error().Err(err).Msg("pipeline: не удалось обновить ключ свежести")
	}
	if s.freshness != nil {
		if err := s.freshness.Touch(ctx, at); err != nil {
			runLog.Warn().Err(err).Msg("pipeline: не удалось сбросить кэш потребителей")
		}
	}
}

// throttle выдерживает случайную паузу в заданных границах между
// обращениями к внешним сервисам. Это вежливость к провайдерам,
// а не требование корректности.
func (s *Service) throttle(ctx context.Context) {
	if s.opts.ThrottleMax <= 0 || ctx.Err() != nil {
		return
	}
	min := s.opts.ThrottleMin
	max := s.opts.ThrottleMax
	if max < min {
		max = min
	}
	delay := min
	if span := max - min; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}
	s.sleeper.Sleep(delay)
}

func buildStories(ranked []domain.RankedItem) []domain.Story {
	stories := make([]domain.Story, 0, len(ranked))
	for _, item := range ranked {
		stories = append(stories, domain.Story{
			ID:              item.StoryID,
			SourceID:        item.Item.SourceID,
			Platform:        item.Item.Platform,
			PublishedAt:     item.Item.PublishedAt,
			Title:           item.Item.Title,
			Description:     item.Item.Description,
			Channel:         item.Item.Channel,
			Category:        item.Category,
			ParentCategory:  item.ParentCategory,
			SummaryShort:    item.Summary.Short,
			SummaryExtended: item.Summary.Extended,
			ImagePrompt:     domain.BuildImagePrompt(item.Category, item.Item.Title, item.Summary.Short),
		})
	}
	return stories
}

func checkRealData(strict bool, summary domain.SummaryPair) error {
	if !strict {
		return nil
	}
	combined := strings.ToLower(summary.Short + " " + summary.Extended)
	for _, marker := range mockMarkers {
		if strings.Contains(combined, marker) {
			return fmt.Errorf("%w: маркер %q", domain.ErrMockContent, marker)
		}
	}
	return nil
}

// IsFatal сообщает, нужно ли трактовать ошибку запуска как конфигурационную
// (не как пустой фид): различие влияет на код выхода процесса.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, domain.ErrEmptyFeed)
}
