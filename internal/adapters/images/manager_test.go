package images

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trendsiam/internal/domain"
	"trendsiam/internal/infra/openai"
)

type stubGenerator struct {
	url   string
	err   error
	calls int
}

func (g *stubGenerator) Generate(context.Context, string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.url, nil
}

type stubSnapshots struct {
	existing   string
	lastStatus domain.ImageStatus
}

func (s *stubSnapshots) UpsertSnapshots(context.Context, []domain.Snapshot) (int, error) {
	return 0, nil
}
func (s *stubSnapshots) ListByDate(context.Context, time.Time) ([]domain.Snapshot, error) {
	return nil, nil
}
func (s *stubSnapshots) LatestReadyImage(context.Context, domain.StoryID) (string, bool, error) {
	return s.existing, s.existing != "", nil
}
func (s *stubSnapshots) LatestImageStatus(context.Context, domain.StoryID) (domain.ImageStatus, bool, error) {
	return s.lastStatus, s.lastStatus != "", nil
}

type stubValidator struct {
	invalid map[string]bool
}

func (v *stubValidator) Validate(_ context.Context, url string) error {
	if v.invalid[url] {
		return errors.New("файл не прошёл проверку")
	}
	return nil
}

type noSleep struct{}

func (noSleep) Sleep(time.Duration) {}

func newManager(gen *stubGenerator, snaps *stubSnapshots, valid *stubValidator, cfg Config) *Manager {
	return NewManager(gen, snaps, valid, noSleep{}, cfg, zerolog.Nop())
}

func ranked(rank int) domain.RankedItem {
	return domain.RankedItem{ScoredItem: domain.ScoredItem{StoryID: "story1"}, Rank: rank}
}

func TestEnsureImageSkipsBeyondTopK(t *testing.T) {
	gen := &stubGenerator{url: "https://cdn.example/pic.png"}
	m := newManager(gen, &stubSnapshots{}, &stubValidator{}, Config{TopK: 3})
	status, url := m.EnsureImage(context.Background(), ranked(4), "prompt")
	if status != domain.ImageSkipped || url != "" {
		t.Fatalf("вне топ-K ожидали n/a, получили %s/%q", status, url)
	}
	if gen.calls != 0 {
		t.Fatalf("вне топ-K генерация не должна вызываться")
	}
}

func TestEnsureImageKeepsExistingValid(t *testing.T) {
	gen := &stubGenerator{url: "https://cdn.example/new.png"}
	snaps := &stubSnapshots{existing: "https://cdn.example/old.png"}
	m := newManager(gen, snaps, &stubValidator{}, Config{TopK: 3})
	status, url := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageReady {
		t.Fatalf("ожидали ready, получили %s", status)
	}
	if url != snaps.existing {
		t.Fatalf("валидная иллюстрация должна остаться неизменной, получили %q", url)
	}
	if gen.calls != 0 {
		t.Fatalf("при валидной иллюстрации генерация не должна вызываться")
	}
}

func TestEnsureImageProtectsExistingOnFailure(t *testing.T) {
	gen := &stubGenerator{err: &openai.APIError{Kind: openai.KindTransient, Message: "сбой"}}
	snaps := &stubSnapshots{existing: "https://cdn.example/old.png"}
	m := newManager(gen, snaps, &stubValidator{}, Config{TopK: 3, MaxRetries: 2, Override: true})
	status, url := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageReady || url != snaps.existing {
		t.Fatalf("отказ генерации не должен затирать валидную иллюстрацию: %s/%q", status, url)
	}
}

func TestEnsureImageRetriesTransientErrors(t *testing.T) {
	gen := &stubGenerator{err: &openai.APIError{Kind: openai.KindRateLimited, Message: "помедленнее"}}
	m := newManager(gen, &stubSnapshots{}, &stubValidator{}, Config{TopK: 3, MaxRetries: 3})
	status, _ := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageFailed {
		t.Fatalf("после исчерпания повторов ожидали failed, получили %s", status)
	}
	if gen.calls != 3 {
		t.Fatalf("ожидали 3 попытки, получили %d", gen.calls)
	}
}

func TestEnsureImageDoesNotRetryPermanentErrors(t *testing.T) {
	gen := &stubGenerator{err: &openai.APIError{Kind: openai.KindContentPolicy, Message: "отклонено"}}
	m := newManager(gen, &stubSnapshots{}, &stubValidator{}, Config{TopK: 3, MaxRetries: 5})
	status, _ := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageFailed {
		t.Fatalf("ожидали failed, получили %s", status)
	}
	if gen.calls != 1 {
		t.Fatalf("постоянная ошибка не должна повторяться, попыток: %d", gen.calls)
	}
}

func TestEnsureImageOverrideRegenerates(t *testing.T) {
	gen := &stubGenerator{url: "https://cdn.example/new.png"}
	snaps := &stubSnapshots{existing: "https://cdn.example/old.png"}
	m := newManager(gen, snaps, &stubValidator{}, Config{TopK: 3, Override: true})
	status, url := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageReady || url != gen.url {
		t.Fatalf("override должен заменить иллюстрацию новой валидной: %s/%q", status, url)
	}
}

func TestEnsureImageRegeneratesWhenExistingInvalid(t *testing.T) {
	gen := &stubGenerator{url: "https://cdn.example/new.png"}
	snaps := &stubSnapshots{existing: "https://cdn.example/broken.png"}
	valid := &stubValidator{invalid: map[string]bool{"https://cdn.example/broken.png": true}}
	m := newManager(gen, snaps, valid, Config{TopK: 3})
	status, url := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageReady || url != gen.url {
		t.Fatalf("сломанная иллюстрация должна заменяться новой: %s/%q", status, url)
	}
}

func TestEnsureImageSkipsPreviouslyFailedWithoutFlag(t *testing.T) {
	gen := &stubGenerator{url: "https://cdn.example/new.png"}
	snaps := &stubSnapshots{lastStatus: domain.ImageFailed}
	m := newManager(gen, snaps, &stubValidator{}, Config{TopK: 3})
	status, url := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageFailed || url != "" {
		t.Fatalf("без regenerate-missing исчерпанная история остаётся failed: %s/%q", status, url)
	}
	if gen.calls != 0 {
		t.Fatalf("без regenerate-missing генерация не должна вызываться")
	}
}

func TestEnsureImageRegenerateMissingRetriesFailed(t *testing.T) {
	gen := &stubGenerator{url: "https://cdn.example/new.png"}
	snaps := &stubSnapshots{lastStatus: domain.ImageFailed}
	m := newManager(gen, snaps, &stubValidator{}, Config{TopK: 3, RegenerateMissing: true})
	status, url := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageReady || url != gen.url {
		t.Fatalf("с regenerate-missing история должна получить новую попытку: %s/%q", status, url)
	}
}

func TestEnsureImageFailedValidationOfNewKeepsNothing(t *testing.T) {
	gen := &stubGenerator{url: "https://cdn.example/new.png"}
	valid := &stubValidator{invalid: map[string]bool{"https://cdn.example/new.png": true}}
	m := newManager(gen, &stubSnapshots{}, valid, Config{TopK: 3})
	status, url := m.EnsureImage(context.Background(), ranked(1), "prompt")
	if status != domain.ImageFailed || url != "" {
		t.Fatalf("невалидный новый файл без прежней иллюстрации даёт failed: %s/%q", status, url)
	}
}
