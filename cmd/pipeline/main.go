package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"trendsiam/internal/adapters/classifier"
	"trendsiam/internal/adapters/images"
	"trendsiam/internal/adapters/ranker"
	"trendsiam/internal/adapters/repo"
	"trendsiam/internal/adapters/scorer"
	"trendsiam/internal/adapters/source"
	"trendsiam/internal/adapters/summarizer"
	"trendsiam/internal/domain"
	"trendsiam/internal/infra/cache"
	"trendsiam/internal/infra/config"
	"trendsiam/internal/infra/db"
	applog "trendsiam/internal/infra/log"
	"trendsiam/internal/infra/metrics"
	"trendsiam/internal/infra/openai"
	"trendsiam/internal/infra/retry"
	"trendsiam/internal/usecase/pipeline"
)

// Коды выхода для cron и оркестраторов: успех, частичная запись,
// пустой фид, ошибка конфигурации или подключения.
const (
	exitOK      = 0
	exitConfig  = 2
	exitEmpty   = 4
	exitPartial = 5
)

// cliOptions — разовые операторские ключи. Постоянная конфигурация
// приходит из окружения (см. config.AppConfig), флаги накладываются поверх.
type cliOptions struct {
	Limit               int  `long:"limit" description:"Сколько элементов брать из фида (0 — значение из окружения)"`
	DryRun              bool `long:"dry-run" description:"Выполнить весь вывод без записи и без генерации иллюстраций"`
	OverrideImages      bool `long:"override-images" description:"Перегенерировать иллюстрации даже при валидных существующих"`
	RegenerateMissing   bool `long:"regenerate-missing-images" description:"Перегенерировать истории со статусом failed/pending"`
	MaxImageRetries     int  `long:"max-image-retries" description:"Предел повторов генерации иллюстрации (0 — значение из окружения)"`
	RetryBackoffSeconds int  `long:"retry-backoff-seconds" description:"Базовая пауза между повторами генерации (0 — значение из окружения)"`
	ForceRefreshStats   bool `long:"force-refresh-stats" description:"Обновить ключ свежести даже без новых записей"`
	Verbose             bool `short:"v" long:"verbose" description:"Подробный лог"`
}

func main() {
	var opts cliOptions
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(exitOK)
		}
		os.Exit(exitConfig)
	}
	// Код выхода возвращается из run, чтобы defer успели отработать:
	// os.Exit внутри run оборвал бы снятие блокировки и закрытие пула.
	os.Exit(run(opts))
}

func run(opts cliOptions) int {
	cfg := config.Load()
	applyFlags(&cfg, opts)
	logger := applog.NewLogger(cfg.AppEnv, opts.Verbose)

	if cfg.PGDSN == "" {
		logger.Error().Msg("pipeline: не указан DSN Postgres (PG_DSN)")
		return exitConfig
	}
	if cfg.Feed.URL == "" {
		logger.Error().Msg("pipeline: не указан адрес трендового фида (FEED_URL)")
		return exitConfig
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: нет подключения к БД")
		return exitConfig
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool, cfg.Limits.ChunkSize, logger.With().Str("component", "repo").Logger())
	if err := repoAdapter.EnsureSchema(ctx); err != nil {
		logger.Error().Err(err).Msg("pipeline: не удалось подготовить схему БД")
		return exitConfig
	}

	// Redis опционален: без него нет сигнала свежести для потребителей
	// и защиты от параллельного запуска, конвейер при этом работоспособен.
	var freshness domain.FreshnessSignal
	var runLock domain.RunLock
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		redisSignal := cache.NewRedis(redisClient)
		freshness = redisSignal
		runLock = redisSignal
	}

	// Dry-run ничего не пишет, блокировка ему не нужна.
	if runLock != nil && !opts.DryRun {
		acquired, lockErr := runLock.Acquire(ctx, cfg.RunLockTTL)
		if lockErr != nil {
			logger.Error().Err(lockErr).Msg("pipeline: не удалось взять блокировку запуска")
			return exitConfig
		}
		if !acquired {
			logger.Warn().Msg("pipeline: предыдущий запуск ещё работает, выходим")
			return exitOK
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if releaseErr := runLock.Release(releaseCtx); releaseErr != nil {
				logger.Error().Err(releaseErr).Msg("pipeline: не удалось снять блокировку запуска")
			}
		}()
	}

	feedClient := source.NewTrendingClient(cfg.Feed.URL, cfg.Feed.Region, cfg.Feed.Timeout,
		logger.With().Str("component", "feed").Logger())

	openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout, cfg.OpenAI.RPS)

	// Без ключа OpenAI работает эвристическая суммаризация: хуже по качеству,
	// но конвейер не останавливается.
	var summarizerAdapter domain.Summarizer
	if cfg.OpenAI.APIKey != "" {
		summarizerAdapter = summarizer.NewOpenAI(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	} else {
		logger.Warn().Msg("pipeline: ключ OpenAI не задан, включена эвристическая суммаризация")
		summarizerAdapter = summarizer.NewSimple()
	}

	imageManager := images.NewManager(
		images.NewOpenAIGenerator(openaiClient, cfg.OpenAI.ImageModel, cfg.OpenAI.Timeout),
		repoAdapter,
		images.NewHTTPValidator(cfg.Images.HTTPCheck, cfg.Images.MinBytes),
		retry.RealSleeper(),
		images.Config{
			TopK:              cfg.Images.TopK,
			MaxRetries:        cfg.Images.MaxRetry,
			Backoff:           time.Duration(cfg.Images.BackoffS) * time.Second,
			Override:          opts.OverrideImages,
			RegenerateMissing: opts.RegenerateMissing,
		},
		logger.With().Str("component", "images").Logger(),
	)

	service := pipeline.NewService(
		feedClient,
		scorer.NewPopularity(),
		classifier.NewKeyword(),
		ranker.NewDeterministic(),
		summarizerAdapter,
		imageManager,
		repoAdapter,
		repoAdapter,
		repoAdapter,
		freshness,
		pipeline.Options{
			Limit:              cfg.Limits.MaxItems,
			TopK:               cfg.Images.TopK,
			DryRun:             opts.DryRun,
			ForceRefreshStats:  opts.ForceRefreshStats,
			StrictRealData:     cfg.StrictRealData,
			AllowStaleFallback: cfg.AllowStaleFallback,
			ThrottleMin:        cfg.Throttle.MinDelay,
			ThrottleMax:        cfg.Throttle.MaxDelay,
		},
		logger.With().Str("component", "pipeline").Logger(),
	)

	logger.Info().Bool("dry_run", opts.DryRun).Msg("pipeline: запуск")
	report, runErr := service.Run(ctx)
	if runErr != nil {
		if !pipeline.IsFatal(runErr) {
			logger.Error().Err(runErr).Msg("pipeline: фид пуст, записи не обновлены")
			return exitEmpty
		}
		logger.Error().Err(runErr).Msg("pipeline: запуск прерван")
		return exitConfig
	}

	pipeline.LogReport(logger, report)
	fmt.Print(pipeline.FormatReport(report))

	if report.Partial {
		return exitPartial
	}
	return exitOK
}

// applyFlags накладывает разовые флаги поверх конфигурации из окружения.
func applyFlags(cfg *config.AppConfig, opts cliOptions) {
	if opts.Limit > 0 {
		cfg.Limits.MaxItems = opts.Limit
	}
	if opts.MaxImageRetries > 0 {
		cfg.Images.MaxRetry = opts.MaxImageRetries
	}
	if opts.RetryBackoffSeconds > 0 {
		cfg.Images.BackoffS = opts.RetryBackoffSeconds
	}
}
