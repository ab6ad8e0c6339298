package transform

import (
	"regexp"
	"strings"
)

var (
	headerDisallowed = regexp.MustCompile(`[^a-z0-9_]`)
	headerUnderscore = regexp.MustCompile(`_+`)
)

// NormalizeHeader приводит имя колонки к snake_case: " Product " → "product",
// "Discount Band" → "discount_band". Повторное применение ничего не меняет.
func NormalizeHeader(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = headerDisallowed.ReplaceAllString(normalized, "")
	normalized = headerUnderscore.ReplaceAllString(normalized, "_")
	return strings.Trim(normalized, "_")
}

// NormalizeHeaders нормализует набор заголовков с сохранением порядка
func NormalizeHeaders(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = NormalizeHeader(name)
	}
	return out
}
