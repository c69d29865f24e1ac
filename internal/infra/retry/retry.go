package retry

import (
	"context"
	"time"
)

// Sleeper абстрагирует ожидание между попытками, чтобы политику повторов
// можно было тестировать без реальных таймеров.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// RealSleeper возвращает Sleeper на time.Sleep.
func RealSleeper() Sleeper { return realSleeper{} }

// Policy задаёт параметры повторов. Retryable классифицирует ошибку:
// false означает фатальную ошибку без повтора.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Sleeper     Sleeper
	Retryable   func(error) bool
}

// Do выполняет fn с экспоненциальным backoff: Backoff * 2^attempt.
// Возвращает первую фатальную либо последнюю ошибку.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Sleeper == nil {
		p.Sleeper = realSleeper{}
	}
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt < p.MaxAttempts-1 {
			p.Sleeper.Sleep(p.Backoff * time.Duration(1<<attempt))
		}
	}
	return lastErr
}
