package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"trendsiam/internal/domain"
	"trendsiam/internal/infra/metrics"
)

const defaultChunkSize = 50

// Postgres реализует StoryRepo, SnapshotRepo и MetaRepo на основе pgxpool.
// Все записи — апсерты по стабильным ключам, повторная отправка того же
// payload не имеет дополнительного эффекта.
type Postgres struct {
	pool      *pgxpool.Pool
	chunkSize int
	log       zerolog.Logger
}

var (
	_ domain.StoryRepo    = (*Postgres)(nil)
	_ domain.SnapshotRepo = (*Postgres)(nil)
	_ domain.MetaRepo     = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool, chunkSize int, logger zerolog.Logger) *Postgres {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Postgres{pool: pool, chunkSize: chunkSize, log: logger}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	id               TEXT PRIMARY KEY,
	source_id        TEXT NOT NULL,
	platform         TEXT NOT NULL,
	published_at     TIMESTAMPTZ NOT NULL,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	channel          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	parent_category  TEXT NOT NULL DEFAULT '',
	summary_short    TEXT NOT NULL DEFAULT '',
	summary_extended TEXT NOT NULL DEFAULT '',
	image_prompt     TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (platform, source_id, published_at)
);

CREATE TABLE IF NOT EXISTS snapshots (
	story_id      TEXT NOT NULL REFERENCES stories(id),
	snapshot_date DATE NOT NULL,
	run_id        TEXT NOT NULL,
	rank          INT NOT NULL DEFAULT 0,
	views         BIGINT NOT NULL DEFAULT 0,
	likes         BIGINT NOT NULL DEFAULT 0,
	comments      BIGINT NOT NULL DEFAULT 0,
	score         INT NOT NULL DEFAULT 0,
	score_precise DOUBLE PRECISION NOT NULL DEFAULT 0,
	image_url     TEXT NOT NULL DEFAULT '',
	image_status  TEXT NOT NULL DEFAULT 'pending',
	reason        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (story_id, snapshot_date)
);

CREATE TABLE IF NOT EXISTS pipeline_meta (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema создаёт таблицы, если их ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, schema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "schema", start, err)
	if err != nil {
		return fmt.Errorf("создание схемы: %w", err)
	}
	return nil
}

// UpsertStories записывает канонические истории чанками. Отказ одного чанка
// логируется и не откатывает уже зафиксированные; возвращается число
// записанных историй и ErrPartialWrite при частичном успехе.
func (p *Postgres) UpsertStories(ctx context.Context, stories []domain.Story) (int, error) {
	upserted := 0
	failedChunks := 0
	for _, chunk := range chunked(stories, p.chunkSize) {
		if err := p.upsertStoryChunk(ctx, chunk); err != nil {
			failedChunks++
			metrics.UpsertChunkErrors.Inc()
			p.log.Error().Err(err).Strs("story_ids", storyIDs(chunk)).Msg("repo: чанк историй не записан")
			continue
		}
		upserted += len(chunk)
	}
	if failedChunks > 0 {
		return upserted, fmt.Errorf("%w: %d чанков историй", domain.ErrPartialWrite, failedChunks)
	}
	return upserted, nil
}

func (p *Postgres) upsertStoryChunk(ctx context.Context, chunk []domain.Story) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, story := range chunk {
		start := time.Now()
		// Пустые резюме и промпт не затирают прежние значения: апдейт
		// только добавляет производные поля.
		_, err := tx.Exec(ctx, `
INSERT INTO stories (id, source_id, platform, published_at, title, description, channel, category, parent_category, summary_short, summary_extended, image_prompt)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
	title            = EXCLUDED.title,
	description      = EXCLUDED.description,
	channel          = EXCLUDED.channel,
	category         = CASE WHEN EXCLUDED.category IN ('', 'Unknown') THEN stories.category ELSE EXCLUDED.category END,
	parent_category  = CASE WHEN EXCLUDED.category IN ('', 'Unknown') THEN stories.parent_category ELSE EXCLUDED.parent_category END,
	summary_short    = CASE WHEN EXCLUDED.summary_short = '' THEN stories.summary_short ELSE EXCLUDED.summary_short END,
	summary_extended = CASE WHEN EXCLUDED.summary_extended = '' THEN stories.summary_extended ELSE EXCLUDED.summary_extended END,
	image_prompt     = CASE WHEN EXCLUDED.image_prompt = '' THEN stories.image_prompt ELSE EXCLUDED.image_prompt END,
	updated_at       = now()
`, story.ID, story.SourceID, story.Platform, story.PublishedAt, story.Title, story.Description, story.Channel,
			story.Category, story.ParentCategory, story.SummaryShort, story.SummaryExtended, story.ImagePrompt)
		metrics.ObserveNetworkRequest("postgres", "stories_upsert", "stories", start, err)
		if err != nil {
			return fmt.Errorf("история %s: %w", story.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// GetStory возвращает историю по идентификатору.
func (p *Postgres) GetStory(ctx context.Context, id domain.StoryID) (domain.Story, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	var story domain.Story
	err := p.pool.QueryRow(ctx, `
SELECT id, source_id, platform, published_at, title, description, channel, category, parent_category, summary_short, summary_extended, image_prompt, created_at, updated_at
FROM stories WHERE id = $1
`, id).Scan(&story.ID, &story.SourceID, &story.Platform, &story.PublishedAt, &story.Title, &story.Description,
		&story.Channel, &story.Category, &story.ParentCategory, &story.SummaryShort, &story.SummaryExtended,
		&story.ImagePrompt, &story.CreatedAt, &story.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "stories_get", "stories", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Story{}, false, nil
		}
		return domain.Story{}, false, err
	}
	return story, true, nil
}

// UpsertSnapshots записывает факты запуска чанками с той же семантикой
// частичного успеха, что и UpsertStories. Повторный запуск в тот же день
// перезаписывает дневной срез (последний запуск побеждает), срезы других
// дней не трогаются. Пустой image_url никогда не затирает уже сохранённый:
// защита иллюстраций действует и на уровне SQL.
func (p *Postgres) UpsertSnapshots(ctx context.Context, snapshots []domain.Snapshot) (int, error) {
	upserted := 0
	failedChunks := 0
	for _, chunk := range chunked(snapshots, p.chunkSize) {
		if err := p.upsertSnapshotChunk(ctx, chunk); err != nil {
			failedChunks++
			metrics.UpsertChunkErrors.Inc()
			p.log.Error().Err(err).Strs("story_ids", snapshotIDs(chunk)).Msg("repo: чанк снапшотов не записан")
			continue
		}
		upserted += len(chunk)
	}
	if failedChunks > 0 {
		return upserted, fmt.Errorf("%w: %d чанков снапшотов", domain.ErrPartialWrite, failedChunks)
	}
	return upserted, nil
}

func (p *Postgres) upsertSnapshotChunk(ctx context.Context, chunk []domain.Snapshot) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, snap := range chunk {
		start := time.Now()
		_, err := tx.Exec(ctx, `
INSERT INTO snapshots (story_id, snapshot_date, run_id, rank, views, likes, comments, score, score_precise, image_url, image_status, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (story_id, snapshot_date) DO UPDATE SET
	run_id        = EXCLUDED.run_id,
	rank          = EXCLUDED.rank,
	views         = EXCLUDED.views,
	likes         = EXCLUDED.likes,
	comments      = EXCLUDED.comments,
	score         = EXCLUDED.score,
	score_precise = EXCLUDED.score_precise,
	image_url     = CASE WHEN EXCLUDED.image_url = '' THEN snapshots.image_url ELSE EXCLUDED.image_url END,
	image_status  = CASE WHEN EXCLUDED.image_url = '' AND snapshots.image_status = 'ready' THEN snapshots.image_status ELSE EXCLUDED.image_status END,
	reason        = EXCLUDED.reason,
	updated_at    = now()
`, snap.StoryID, snap.Date, snap.RunID, snap.Rank, snap.Views, snap.Likes, snap.Comments,
			snap.Score, snap.ScorePrecise, snap.ImageURL, string(snap.ImageStatus), snap.Reason)
		metrics.ObserveNetworkRequest("postgres", "snapshots_upsert", "snapshots", start, err)
		if err != nil {
			return fmt.Errorf("снапшот %s/%s: %w", snap.StoryID, snap.RunID, err)
		}
	}
	return tx.Commit(ctx)
}

// ListByDate возвращает снапшоты за указанный день (для исторического фолбэка).
func (p *Postgres) ListByDate(ctx context.Context, date time.Time) ([]domain.Snapshot, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT story_id, snapshot_date, run_id, rank, views, likes, comments, score, score_precise, image_url, image_status, reason
FROM snapshots WHERE snapshot_date = $1
ORDER BY rank ASC
`, date)
	metrics.ObserveNetworkRequest("postgres", "snapshots_list", "snapshots", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		var snap domain.Snapshot
		var status string
		if err := rows.Scan(&snap.StoryID, &snap.Date, &snap.RunID, &snap.Rank, &snap.Views, &snap.Likes,
			&snap.Comments, &snap.Score, &snap.ScorePrecise, &snap.ImageURL, &status, &snap.Reason); err != nil {
			return nil, err
		}
		snap.ImageStatus = domain.ImageStatus(status)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LatestReadyImage возвращает последнюю подтверждённую иллюстрацию истории.
func (p *Postgres) LatestReadyImage(ctx context.Context, id domain.StoryID) (string, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	var url string
	err := p.pool.QueryRow(ctx, `
SELECT image_url FROM snapshots
WHERE story_id = $1 AND image_status = 'ready' AND image_url <> ''
ORDER BY snapshot_date DESC, updated_at DESC
LIMIT 1
`, id).Scan(&url)
	metrics.ObserveNetworkRequest("postgres", "snapshots_latest_image", "snapshots", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return url, true, nil
}

// LatestImageStatus возвращает статус иллюстрации из последнего снапшота истории.
func (p *Postgres) LatestImageStatus(ctx context.Context, id domain.StoryID) (domain.ImageStatus, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	var status string
	err := p.pool.QueryRow(ctx, `
SELECT image_status FROM snapshots
WHERE story_id = $1
ORDER BY snapshot_date DESC, updated_at DESC
LIMIT 1
`, id).Scan(&status)
	metrics.ObserveNetworkRequest("postgres", "snapshots_latest_status", "snapshots", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return domain.ImageStatus(status), true, nil
}

// TouchFreshness обновляет ключ свежести данных после успешной записи.
func (p *Postgres) TouchFreshness(ctx context.Context, at time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO pipeline_meta (key, value, updated_at)
VALUES ('data_last_updated', $1, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`, at.UTC().Format(time.RFC3339))
	metrics.ObserveNetworkRequest("postgres", "meta_touch", "pipeline_meta", start, err)
	return err
}

func chunked[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = defaultChunkSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

func storyIDs(chunk []domain.Story) []string {
	ids := make([]string, 0, len(chunk))
	for _, s := range chunk {
		ids = append(ids, string(s.ID))
	}
	return ids
}

func snapshotIDs(chunk []domain.Snapshot) []string {
	ids := make([]string, 0, len(chunk))
	for _, s := range chunk {
		ids = append(ids, string(s.StoryID))
	}
	return ids
}
