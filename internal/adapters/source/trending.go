package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trendsiam/internal/domain"
	"trendsiam/internal/infra/metrics"
)

// Clock выдаёт текущее время; подменяется в тестах.
type Clock func() time.Time

// TrendingClient забирает список трендовых роликов у внешнего фид-сервиса.
type TrendingClient struct {
	http    *http.Client
	baseURL string
	region  string
	clock   Clock
	log     zerolog.Logger
}

var _ domain.ContentSource = (*TrendingClient)(nil)

// NewTrendingClient создаёт клиента фида.
func NewTrendingClient(baseURL, region string, timeout time.Duration, logger zerolog.Logger) *TrendingClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TrendingClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		region:  region,
		clock:   time.Now,
		log:     logger,
	}
}

// feedItem — элемент фида на проводе.
type feedItem struct {
	SourceID    string `json:"source_id"`
	Platform    string `json:"platform"`
	PublishTime string `json:"publish_time"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	Views       int64  `json:"view_count"`
	Likes       int64  `json:"like_count"`
	Comments    int64  `json:"comment_count"`
}

// FetchTrending возвращает сырые элементы фида. Элементы без заголовка
// отбрасываются с логом; непарсящаяся дата публикации заменяется временем
// приёма, и такой элемент получает новую идентичность при каждом запуске.
func (c *TrendingClient) FetchTrending(ctx context.Context, limit int) ([]domain.RawItem, error) {
	endpoint := c.baseURL + "/trending"
	query := url.Values{}
	if c.region != "" {
		query.Set("region", c.region)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("построение запроса фида: %w", err)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("feed", "fetch_trending", c.region, start, err)
	if err != nil {
		return nil, fmt.Errorf("запрос трендового фида: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("трендовый фид: статус %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение фида: %w", err)
	}

	var wire struct {
		Items []feedItem `json:"items"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("распаковка фида: %w", err)
	}

	items := make([]domain.RawItem, 0, len(wire.Items))
	for _, fi := range wire.Items {
		item, ok := c.convert(fi)
		if !ok {
			metrics.ItemsSkipped.Inc()
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (c *TrendingClient) convert(fi feedItem) (domain.RawItem, bool) {
	if strings.TrimSpace(fi.SourceID) == "" || strings.TrimSpace(fi.Title) == "" {
		c.log.Warn().Str("source_id", fi.SourceID).Msg("feed: элемент без идентификатора или заголовка пропущен")
		return domain.RawItem{}, false
	}
	platform := fi.Platform
	if platform == "" {
		platform = "youtube"
	}

	publishedRaw := fi.PublishTime
	publishedAt, err := parsePublishTime(fi.PublishTime)
	if err != nil {
		c.log.Warn().Str("source_id", fi.SourceID).Str("publish_time", fi.PublishTime).
			Msg("feed: дата публикации не распарсилась, подставлено время приёма")
		publishedAt = c.clock().UTC()
		publishedRaw = ""
	}

	views := fi.Views
	if views < 0 {
		views = 0
	}
	likes := fi.Likes
	if likes < 0 {
		likes = 0
	}
	comments := fi.Comments
	if comments < 0 {
		comments = 0
	}

	return domain.RawItem{
		SourceID:     fi.SourceID,
		Platform:     platform,
		PublishedAt:  publishedAt,
		PublishedRaw: publishedRaw,
		Title:        strings.TrimSpace(fi.Title),
		Description:  strings.TrimSpace(fi.Description),
		Channel:      strings.TrimSpace(fi.Channel),
		Views:        views,
		Likes:        likes,
		Comments:     comments,
	}, true
}

var publishTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parsePublishTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("пустая дата публикации")
	}
	for _, layout := range publishTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("неизвестный формат даты: %q", raw)
}
