package quality

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

// Названия проверок в отчете
const (
	ExpectSchema         = "expect_table_columns_to_match_set"
	ExpectNoLakh         = "expect_no_indian_number_notation"
	ExpectNoDollarDash   = "expect_no_dollar_dash_notation"
	ExpectNoParentheses  = "expect_no_parentheses_for_negative"
	ExpectNoInvisible    = "expect_no_invisible_characters"
	maxUnexpectedExample = 10
)

var (
	// Группы по две цифры перед последней тройкой: 5,29,550 или 1,00,00,000
	lakhPattern        = regexp.MustCompile(`\b\d{1,2}(,\d{2})+,\d{3}\b`)
	dollarDashPattern  = regexp.MustCompile(`\$\s*-`)
	parenthesesPattern = regexp.MustCompile(`\$?\s*\(\s*[\d,\.]+\s*\)`)
)

// invisiblePatterns порядок важен только для отчета
var invisiblePatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"zero_width_space", regexp.MustCompile(`\x{200B}`)},
	{"non_breaking_space", regexp.MustCompile(`\x{00A0}`)},
	{"tab", regexp.MustCompile(`\t`)},
	{"carriage_return", regexp.MustCompile(`\r`)},
	{"multiple_spaces", regexp.MustCompile(`  +`)},
	{"leading_whitespace", regexp.MustCompile(`^\s+`)},
	{"trailing_whitespace", regexp.MustCompile(`\s+$`)},
}

// LakhColumns денежные колонки, где запрещена индийская группировка
var LakhColumns = []string{
	models.BronzeManufacturingPrice, models.BronzeSalePrice, models.BronzeGrossSales,
	models.BronzeDiscounts, models.BronzeSales, models.BronzeCOGS, models.BronzeProfit,
}

// ExpectColumns проверяет наличие обязательных колонок и сообщает лишние
func ExpectColumns(table models.RawTable, required []string) models.ExpectationResult {
	present := make(map[string]bool, len(table.Header))
	for _, h := range table.Header {
		present[h] = true
	}
	expected := make(map[string]bool, len(required))
	var missing []string
	for _, col := range required {
		expected[col] = true
		if !present[col] {
			missing = append(missing, col)
		}
	}
	var extra []string
	for _, h := range table.Header {
		if !expected[h] {
			extra = append(extra, h)
		}
	}
	sort.Strings(extra)

	result := models.ExpectationResult{
		Expectation:      ExpectSchema,
		Success:          len(missing) == 0,
		UnexpectedCount:  len(missing),
		UnexpectedValues: missing,
	}
	if len(required) > 0 {
		result.UnexpectedPct = float64(len(missing)) / float64(len(required)) * 100
	}
	if len(extra) > 0 {
		result.Details = "колонки_extras: " + strings.Join(extra, ", ")
	}
	return result
}

// expectColumnValues общий проход по колонке: match возвращает true для неожиданного значения
func expectColumnValues(table models.RawTable, name, column string, match func(string) bool) models.ExpectationResult {
	result := models.ExpectationResult{Expectation: name, Column: column, Success: true}
	if table.ColumnIndex(column) < 0 {
		return result
	}

	for i := range table.Rows {
		value := table.Value(i, column)
		if !match(value) {
			continue
		}
		result.UnexpectedCount++
		if len(result.UnexpectedValues) < maxUnexpectedExample {
			result.UnexpectedValues = append(result.UnexpectedValues, value)
		}
	}

	result.Success = result.UnexpectedCount == 0
	if n := table.Len(); n > 0 {
		result.UnexpectedPct = float64(result.UnexpectedCount) / float64(n) * 100
	}
	return result
}

// ExpectNoLakhNotation значения вида 5,29,550 в колонке
func ExpectNoLakhNotation(table models.RawTable, column string) models.ExpectationResult {
	return expectColumnValues(table, ExpectNoLakh, column, lakhPattern.MatchString)
}

// ExpectNoDollarDashNotation заглушки "$-" в колонке
func ExpectNoDollarDashNotation(table models.RawTable, column string) models.ExpectationResult {
	return expectColumnValues(table, ExpectNoDollarDash, column, dollarDashPattern.MatchString)
}

// ExpectNoParenthesesNegative бухгалтерские отрицательные в скобках
func ExpectNoParenthesesNegative(table models.RawTable, column string) models.ExpectationResult {
	return expectColumnValues(table, ExpectNoParentheses, column, parenthesesPattern.MatchString)
}

// ExpectNoInvisibleCharacters невидимые символы и лишние пробелы; в Details счетчики по типам
func ExpectNoInvisibleCharacters(table models.RawTable, column string) models.ExpectationResult {
	found := make(map[string]int)
	result := expectColumnValues(table, ExpectNoInvisible, column, func(value string) bool {
		hit := false
		for _, p := range invisiblePatterns {
			if p.pattern.MatchString(value) {
				found[p.name]++
				hit = true
			}
		}
		return hit
	})

	if len(found) > 0 {
		parts := make([]string, 0, len(found))
		for _, p := range invisiblePatterns {
			if n, ok := found[p.name]; ok {
				parts = append(parts, fmt.Sprintf("%s=%d", p.name, n))
			}
		}
		result.Details = strings.Join(parts, ", ")
	}
	return result
}
