package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, payload string) *TrendingClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return NewTrendingClient(srv.URL, "TH", time.Second, zerolog.Nop())
}

func TestFetchTrendingParsesItems(t *testing.T) {
	c := newTestClient(t, `{"items":[
		{"source_id":"vid1","platform":"youtube","publish_time":"2025-06-01T10:00:00Z","title":"ข่าวด่วน","view_count":1000,"like_count":50,"comment_count":5},
		{"source_id":"vid2","publish_time":"2025-06-01","title":"MV ใหม่","view_count":20}
	]}`)
	items, err := c.FetchTrending(context.Background(), 0)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ожидали 2 элемента, получили %d", len(items))
	}
	if items[0].PublishedAt != time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) {
		t.Fatalf("неверно распарсена дата: %v", items[0].PublishedAt)
	}
	if items[1].Platform != "youtube" {
		t.Fatalf("пустая платформа должна подставляться по умолчанию")
	}
}

func TestFetchTrendingSkipsItemsWithoutTitle(t *testing.T) {
	c := newTestClient(t, `{"items":[
		{"source_id":"vid1","publish_time":"2025-06-01T10:00:00Z","title":""},
		{"source_id":"","publish_time":"2025-06-01T10:00:00Z","title":"без id"},
		{"source_id":"vid3","publish_time":"2025-06-01T10:00:00Z","title":"ok"}
	]}`)
	items, err := c.FetchTrending(context.Background(), 0)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 1 || items[0].SourceID != "vid3" {
		t.Fatalf("ожидали один валидный элемент vid3, получили %d", len(items))
	}
}

func TestFetchTrendingFallsBackToNowOnBadDate(t *testing.T) {
	c := newTestClient(t, `{"items":[{"source_id":"vid1","publish_time":"завтра","title":"ok"}]}`)
	frozen := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	c.clock = func() time.Time { return frozen }
	items, err := c.FetchTrending(context.Background(), 0)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if items[0].PublishedAt != frozen {
		t.Fatalf("ожидали подстановку времени приёма, получили %v", items[0].PublishedAt)
	}
	if items[0].PublishedRaw != "" {
		t.Fatalf("исходная строка даты должна сбрасываться при фолбэке")
	}
}

func TestFetchTrendingHonorsLimit(t *testing.T) {
	c := newTestClient(t, `{"items":[
		{"source_id":"vid1","publish_time":"2025-06-01T10:00:00Z","title":"a"},
		{"source_id":"vid2","publish_time":"2025-06-01T10:00:00Z","title":"b"},
		{"source_id":"vid3","publish_time":"2025-06-01T10:00:00Z","title":"c"}
	]}`)
	items, err := c.FetchTrending(context.Background(), 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ожидали срез по лимиту, получили %d", len(items))
	}
}

func TestFetchTrendingErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := NewTrendingClient(srv.URL, "TH", time.Second, zerolog.Nop())
	if _, err := c.FetchTrending(context.Background(), 0); err == nil {
		t.Fatalf("ожидали ошибку при статусе 502")
	}
}
