package pipeline

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"trendsiam/internal/domain"
)

// FormatReport собирает человекочитаемый итог запуска для оператора.
func FormatReport(report domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Запуск %s за %s\n", report.RunID, report.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "  получено из фида:     %d\n", report.Fetched)
	fmt.Fprintf(&b, "  обработано:           %d (дубликатов: %d)\n", report.Processed, report.Skipped)
	fmt.Fprintf(&b, "  историй записано:     %d\n", report.StoriesUpserted)
	fmt.Fprintf(&b, "  снапшотов записано:   %d\n", report.SnapshotsUpserted)
	fmt.Fprintf(&b, "  иллюстраций: новых %d, сохранено %d, отказов %d\n",
		report.ImagesGenerated, report.ImagesKept, report.ImagesFailed)
	fmt.Fprintf(&b, "  без категории:        %.1f%%\n", report.UnknownRate()*100)
	fmt.Fprintf(&b, "  покрытие резюме:      %.1f%%\n", report.SummaryCoverage()*100)
	if report.Partial {
		b.WriteString("  итог: частичный успех\n")
	} else {
		b.WriteString("  итог: успех\n")
	}
	return b.String()
}

// LogReport пишет структурированный итог запуска.
func LogReport(logger zerolog.Logger, report domain.RunReport) {
	logger.Info().
		Str("run_id", report.RunID).
		Str("date", report.Date.Format("2006-01-02")).
		Int("fetched", report.Fetched).
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("stories_upserted", report.StoriesUpserted).
		Int("snapshots_upserted", report.SnapshotsUpserted).
		Int("images_generated", report.ImagesGenerated).
		Int("images_kept", report.ImagesKept).
		Int("images_failed", report.ImagesFailed).
		Float64("unknown_rate", report.UnknownRate()).
		Float64("summary_coverage", report.SummaryCoverage()).
		Bool("partial", report.Partial).
		Msg("pipeline: запуск завершён")
}
