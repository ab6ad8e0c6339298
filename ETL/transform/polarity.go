package transform

import (
	"regexp"
	"strings"
)

// Бухгалтерская запись отрицательного числа: $(4,533.75)
var parenthesesPattern = regexp.MustCompile(`^\$?\s*\(\s*([\d,\.]+)\s*\)`)

// ResolvePolarity определяет отрицательное значение в скобках.
// При совпадении возвращает true и цифры внутри скобок,
// иначе false и исходную строку без изменений.
func ResolvePolarity(raw string) (bool, string) {
	match := parenthesesPattern.FindStringSubmatch(strings.TrimSpace(stripInvisible(raw)))
	if match == nil {
		return false, raw
	}
	return true, match[1]
}
