package summarizer

import (
	"context"
	"strings"
	"testing"
)

func TestSimpleSummarize(t *testing.T) {
	s := NewSimple()
	pair, err := s.Summarize(context.Background(), "ข่าวด่วนวันนี้", strings.Repeat("รายละเอียด ", 80))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if pair.Short == "" || pair.Extended == "" {
		t.Fatalf("ожидали оба резюме заполненными")
	}
	if len([]rune(pair.Extended)) > 401 {
		t.Fatalf("расширенное резюме должно быть обрезано, длина %d", len([]rune(pair.Extended)))
	}
}

func TestSimpleSummarizeEmptyInput(t *testing.T) {
	s := NewSimple()
	pair, err := s.Summarize(context.Background(), "", "")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if pair.Short != "" || pair.Extended != "" {
		t.Fatalf("пустой вход должен давать пустую пару")
	}
}

func TestSimpleSummarizeTitleOnly(t *testing.T) {
	s := NewSimple()
	pair, err := s.Summarize(context.Background(), "MV ใหม่มาแล้ว", "")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if pair.Short != "MV ใหม่มาแล้ว" {
		t.Fatalf("краткое резюме должно взять заголовок, получили %q", pair.Short)
	}
	if pair.Extended == "" {
		t.Fatalf("расширенное резюме должно заполняться из заголовка")
	}
}
