package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию конвейера, загружаемую из окружения.
// Разовые операторские ключи (--dry-run и т.п.) приходят флагами CLI и
// накладываются поверх этих значений в cmd/pipeline.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Asia/Bangkok"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`

	Feed struct {
		URL     string        `envconfig:"FEED_URL"`
		Region  string        `envconfig:"FEED_REGION" default:"TH"`
		Timeout time.Duration `envconfig:"FEED_TIMEOUT" default:"30s"`
	} `envconfig:""`

	OpenAI struct {
		APIKey     string        `envconfig:"OPENAI_API_KEY"`
		BaseURL    string        `envconfig:"OPENAI_BASE_URL"`
		Model      string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		ImageModel string        `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`
		Timeout    time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
		RPS        float64       `envconfig:"OPENAI_RPS" default:"1"`
	} `envconfig:""`

	Images struct {
		TopK      int   `envconfig:"IMAGES_TOP_K" default:"3"`
		MinBytes  int64 `envconfig:"IMAGES_MIN_BYTES" default:"5120"`
		MaxRetry  int   `envconfig:"IMAGES_MAX_RETRIES" default:"3"`
		BackoffS  int   `envconfig:"IMAGES_RETRY_BACKOFF_SECONDS" default:"2"`
		HTTPCheck time.Duration `envconfig:"IMAGES_VALIDATE_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Throttle struct {
		MinDelay time.Duration `envconfig:"THROTTLE_MIN_DELAY" default:"500ms"`
		MaxDelay time.Duration `envconfig:"THROTTLE_MAX_DELAY" default:"2s"`
	} `envconfig:""`

	Limits struct {
		MaxItems  int `envconfig:"MAX_ITEMS" default:"50"`
		ChunkSize int `envconfig:"UPSERT_CHUNK_SIZE" default:"50"`
	} `envconfig:""`

	StrictRealData     bool `envconfig:"STRICT_REAL_DATA" default:"false"`
	AllowStaleFallback bool `envconfig:"ALLOW_STALE_FALLBACK" default:"false"`

	RunLockTTL time.Duration `envconfig:"RUN_LOCK_TTL" default:"30m"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
