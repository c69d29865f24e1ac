package domain

import (
	"testing"
	"time"
)

func TestDeriveStoryIDStable(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := DeriveStoryID("vid123", "youtube", ts)
	b := DeriveStoryID("vid123", "youtube", ts)
	if a != b {
		t.Fatalf("ожидали одинаковый идентификатор, получили %s и %s", a, b)
	}
	if len(a) != storyIDLength {
		t.Fatalf("ожидали идентификатор длины %d, получили %d", storyIDLength, len(a))
	}
}

func TestDeriveStoryIDSensitiveToInputs(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := DeriveStoryID("vid123", "youtube", ts)
	if DeriveStoryID("vid124", "youtube", ts) == base {
		t.Fatalf("смена source_id не изменила идентификатор")
	}
	if DeriveStoryID("vid123", "tiktok", ts) == base {
		t.Fatalf("смена платформы не изменила идентификатор")
	}
	if DeriveStoryID("vid123", "youtube", ts.Add(time.Second)) == base {
		t.Fatalf("смена времени публикации не изменила идентификатор")
	}
}

func TestDeriveStoryIDIgnoresTimezoneRepresentation(t *testing.T) {
	utc := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	bkk := utc.In(time.FixedZone("ICT", 7*3600))
	if DeriveStoryID("vid123", "youtube", utc) != DeriveStoryID("vid123", "youtube", bkk) {
		t.Fatalf("представление таймзоны не должно влиять на идентификатор")
	}
}
