package transform

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ISODateLayout формат дат слоев Silver и Gold
const ISODateLayout = "2006-01-02"

// NormalizeDate переводит дату из формата источника в YYYY-MM-DD.
// Нераспознанная дата дает пустую строку.
func NormalizeDate(raw, layout string) string {
	value := strings.TrimSpace(stripInvisible(raw))
	if value == "" {
		return ""
	}
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return ""
	}
	return parsed.Format(ISODateLayout)
}

// ParseISODate разбирает дату YYYY-MM-DD в календарную дату
func ParseISODate(value string) (civil.Date, bool) {
	d, err := civil.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}
