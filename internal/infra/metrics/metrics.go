package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ItemsFetched = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_items_fetched",
		Help: "Сколько элементов отдал источник в последнем запуске",
	})
	ItemsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_items_skipped_total",
		Help: "Элементы, отброшенные валидацией",
	})
	ImagesGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_images_generated_total",
		Help: "Успешно сгенерированные иллюстрации",
	})
	ImagesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_images_failed_total",
		Help: "Иллюстрации, не сгенерированные после всех повторов",
	})
	UnknownCategories = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_unknown_categories_total",
		Help: "Истории без определённой категории",
	})
	UpsertChunkErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_upsert_chunk_errors_total",
		Help: "Чанки, не записанные в хранилище",
	})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_run_seconds",
		Help:    "Длительность полного запуска конвейера",
		Buckets: prometheus.DefBuckets,
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ItemsFetched,
		ItemsSkipped,
		ImagesGenerated,
		ImagesFailed,
		UnknownCategories,
		UpsertChunkErrors,
		RunDuration,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}
