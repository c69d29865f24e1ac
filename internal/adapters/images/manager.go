package images

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trendsiam/internal/domain"
	"trendsiam/internal/infra/metrics"
	"trendsiam/internal/infra/openai"
	"trendsiam/internal/infra/retry"
)

// Validator проверяет, что по ссылке лежит пригодная иллюстрация.
type Validator interface {
	Validate(ctx context.Context, url string) error
}

// Config задаёт политику менеджера иллюстраций.
type Config struct {
	// TopK — сколько верхних позиций обслуживается; остальные получают n/a.
	TopK int
	// MaxRetries — предел повторов генерации.
	MaxRetries int
	// Backoff — базовая пауза экспоненциального backoff.
	Backoff time.Duration
	// Override — операторский флаг: перегенерировать даже при валидной иллюстрации.
	Override bool
	// RegenerateMissing — перегенерировать истории со статусом failed/pending.
	RegenerateMissing bool
}

// Manager решает, нужна ли истории новая иллюстрация, и никогда не затирает
// уже существующую валидную: любой отказ генерации оставляет прежний URL.
type Manager struct {
	gen       domain.ImageGenerator
	snapshots domain.SnapshotRepo
	validator Validator
	sleeper   retry.Sleeper
	cfg       Config
	log       zerolog.Logger
}

// NewManager создаёт менеджер иллюстраций.
func NewManager(gen domain.ImageGenerator, snapshots domain.SnapshotRepo, validator Validator, sleeper retry.Sleeper, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	return &Manager{gen: gen, snapshots: snapshots, validator: validator, sleeper: sleeper, cfg: cfg, log: logger}
}

// EnsureImage возвращает статус и URL иллюстрации для одной позиции рейтинга.
// Порядок проверок фиксирован: позиция в топе, существующая иллюстрация,
// генерация с повторами.
func (m *Manager) EnsureImage(ctx context.Context, item domain.RankedItem, prompt string) (domain.ImageStatus, string) {
	if item.Rank > m.cfg.TopK {
		return domain.ImageSkipped, ""
	}

	existing, hasExisting, err := m.snapshots.LatestReadyImage(ctx, item.StoryID)
	if err != nil {
		m.log.Warn().Err(err).Str("story", string(item.StoryID)).Msg("images: не удалось прочитать прежнюю иллюстрацию")
	}
	if hasExisting {
		if validationErr := m.validator.Validate(ctx, existing); validationErr == nil {
			if !m.cfg.Override {
				return domain.ImageReady, existing
			}
		} else {
			m.log.Debug().Err(validationErr).Str("story", string(item.StoryID)).Msg("images: прежняя иллюстрация не прошла проверку")
			hasExisting = false
		}
	}

	// Историю с исчерпанными попытками не генерируем повторно из запуска
	// в запуск: на это нужен явный флаг regenerate-missing.
	if !hasExisting && !m.cfg.Override && !m.cfg.RegenerateMissing {
		lastStatus, found, statusErr := m.snapshots.LatestImageStatus(ctx, item.StoryID)
		if statusErr != nil {
			m.log.Warn().Err(statusErr).Str("story", string(item.StoryID)).Msg("images: не удалось прочитать статус прежней иллюстрации")
		}
		if found && lastStatus == domain.ImageFailed {
			m.log.Info().Str("story", string(item.StoryID)).Msg("images: прежние попытки исчерпаны, пропускаем без regenerate-missing")
			return domain.ImageFailed, ""
		}
	}

	url, genErr := m.generateWithRetry(ctx, item.StoryID, prompt)
	if genErr != nil {
		metrics.ImagesFailed.Inc()
		m.log.Error().Err(genErr).Str("story", string(item.StoryID)).Msg("images: генерация не удалась")
		// Валидная иллюстрация переживает любой отказ, в том числе при override.
		if hasExisting {
			return domain.ImageReady, existing
		}
		return domain.ImageFailed, ""
	}

	if err := m.validator.Validate(ctx, url); err != nil {
		metrics.ImagesFailed.Inc()
		m.log.Error().Err(err).Str("story", string(item.StoryID)).Msg("images: сгенерированный файл не прошёл проверку")
		if hasExisting {
			return domain.ImageReady, existing
		}
		return domain.ImageFailed, ""
	}

	metrics.ImagesGenerated.Inc()
	return domain.ImageReady, url
}

func (m *Manager) generateWithRetry(ctx context.Context, id domain.StoryID, prompt string) (string, error) {
	var url string
	err := retry.Do(ctx, retry.Policy{
		MaxAttempts: m.cfg.MaxRetries,
		Backoff:     m.cfg.Backoff,
		Sleeper:     m.sleeper,
		Retryable:   openai.IsRetryable,
	}, func() error {
		generated, err := m.gen.Generate(ctx, prompt)
		if err != nil {
			m.log.Debug().Err(err).Str("story", string(id)).Msg("images: попытка генерации не удалась")
			return err
		}
		url = generated
		return nil
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// allowedExtensions — допустимые форматы иллюстраций.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// HTTPValidator проверяет иллюстрацию HEAD-запросом: доступность,
// минимальный размер и разрешённое расширение.
type HTTPValidator struct {
	http     *http.Client
	minBytes int64
}

// NewHTTPValidator создаёт валидатор.
func NewHTTPValidator(timeout time.Duration, minBytes int64) *HTTPValidator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPValidator{http: &http.Client{Timeout: timeout}, minBytes: minBytes}
}

// Validate возвращает nil, если по ссылке лежит пригодная иллюстрация.
func (v *HTTPValidator) Validate(ctx context.Context, rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("пустой URL иллюстрации")
	}
	ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("недопустимое расширение иллюстрации: %q", ext)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("построение запроса: %w", err)
	}
	start := time.Now()
	resp, err := v.http.Do(req)
	metrics.ObserveNetworkRequest("images", "validate", "head", start, err)
	if err != nil {
		return fmt.Errorf("проверка иллюстрации: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("иллюстрация недоступна: статус %d", resp.StatusCode)
	}
	if resp.ContentLength >= 0 && resp.ContentLength < v.minBytes {
		return fmt.Errorf("иллюстрация меньше минимального размера: %d байт", resp.ContentLength)
	}
	return nil
}
