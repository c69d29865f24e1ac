package domain

import "strings"

// BuildImagePrompt собирает запрос к сервису генерации иллюстраций из
// категории, заголовка и краткого резюме. Шаблон детерминированный:
// одинаковый вход всегда даёт одинаковый промпт.
func BuildImagePrompt(category, title, summaryShort string) string {
	var parts []string
	if category != "" && category != "Other" && category != "Unknown" {
		parts = append(parts, "Editorial illustration for a "+strings.ToLower(category)+" story.")
	} else {
		parts = append(parts, "Editorial illustration for a trending story.")
	}
	if title != "" {
		parts = append(parts, "Topic: "+title+".")
	}
	if summaryShort != "" {
		parts = append(parts, "Context: "+summaryShort)
	}
	parts = append(parts, "Flat vector style, no text, no real faces.")
	return strings.Join(parts, " ")
}
