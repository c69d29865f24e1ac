package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) Sleep(d time.Duration) { f.slept = append(f.slept, d) }

func TestDoRetriesWithExponentialBackoff(t *testing.T) {
	sleeper := &fakeSleeper{}
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, Backoff: time.Second, Sleeper: sleeper}, func() error {
		calls++
		return errors.New("временная ошибка")
	})
	if err == nil {
		t.Fatalf("ожидали ошибку после исчерпания попыток")
	}
	if calls != 3 {
		t.Fatalf("ожидали 3 попытки, получили %d", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeper.slept) != len(want) {
		t.Fatalf("ожидали %d пауз, получили %d", len(want), len(sleeper.slept))
	}
	for i := range want {
		if sleeper.slept[i] != want[i] {
			t.Fatalf("пауза %d: ожидали %v, получили %v", i, want[i], sleeper.slept[i])
		}
	}
}

func TestDoStopsOnFatalError(t *testing.T) {
	fatal := errors.New("фатальная ошибка")
	calls := 0
	err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Backoff:     time.Second,
		Sleeper:     &fakeSleeper{},
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}, func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("ожидали фатальную ошибку, получили %v", err)
	}
	if calls != 1 {
		t.Fatalf("фатальная ошибка не должна повторяться, попыток: %d", calls)
	}
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, Backoff: time.Millisecond, Sleeper: &fakeSleeper{}}, func() error {
		calls++
		if calls < 2 {
			return errors.New("ещё рано")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if calls != 2 {
		t.Fatalf("ожидали успех со второй попытки, попыток: %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, Policy{MaxAttempts: 3, Backoff: time.Second, Sleeper: &fakeSleeper{}}, func() error {
		t.Fatalf("функция не должна вызываться после отмены контекста")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидали context.Canceled, получили %v", err)
	}
}
