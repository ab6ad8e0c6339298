package transform

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/finance_etl/ETL/utils"
)

var (
	// Индийская группировка разрядов: 5,29,550 или 71,50,000
	lakhPattern = regexp.MustCompile(`^(\d{1,3})(,\d{2})+(,\d{3})?$`)

	// Заглушка нуля в бухгалтерском формате: "$-", "$ - "
	dollarDashPattern = regexp.MustCompile(`^\$\s*-\s*`)
)

// ParseStats счетчики работы денежного парсера
type ParseStats struct {
	Parsed     int
	Lakh       int
	DollarDash int
	Empty      int
	Failures   int
}

// MonetaryNormalizer разбирает денежные значения в decimal; ошибки не возвращаются
type MonetaryNormalizer struct {
	logger *utils.ETLLogger
	stats  ParseStats
}

// NewMonetaryNormalizer создает новый экземпляр MonetaryNormalizer
func NewMonetaryNormalizer(logger *utils.ETLLogger) *MonetaryNormalizer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &MonetaryNormalizer{logger: logger}
}

// Stats возвращает накопленные счетчики
func (n *MonetaryNormalizer) Stats() ParseStats {
	return n.stats
}

// Parse разбирает значение любого поддерживаемого типа.
// Числа проходят без изменений, nil и NaN дают 0.
func (n *MonetaryNormalizer) Parse(value interface{}) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		n.stats.Empty++
		return decimal.Zero
	case decimal.Decimal:
		n.stats.Parsed++
		return v
	case *decimal.Decimal:
		if v == nil {
			n.stats.Empty++
			return decimal.Zero
		}
		n.stats.Parsed++
		return *v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n.stats.Empty++
			return decimal.Zero
		}
		n.stats.Parsed++
		return decimal.NewFromFloat(v)
	case float32:
		return n.Parse(float64(v))
	case int:
		n.stats.Parsed++
		return decimal.NewFromInt(int64(v))
	case int64:
		n.stats.Parsed++
		return decimal.NewFromInt(v)
	case int32:
		n.stats.Parsed++
		return decimal.NewFromInt(int64(v))
	case string:
		return n.ParseString(v)
	case *string:
		if v == nil {
			n.stats.Empty++
			return decimal.Zero
		}
		return n.ParseString(*v)
	default:
		return n.ParseString(fmt.Sprint(v))
	}
}

// ParseString разбирает денежную строку: "$-" → 0, символ валюты и пробелы
// удаляются, разделители разрядов (в том числе индийские) отбрасываются.
// Нераспознанное значение логируется и дает 0.
func (n *MonetaryNormalizer) ParseString(raw string) decimal.Decimal {
	value := strings.TrimSpace(stripInvisible(raw))

	if dollarDashPattern.MatchString(value) {
		n.stats.DollarDash++
		return decimal.Zero
	}
	if value == "" {
		n.stats.Empty++
		return decimal.Zero
	}

	value = strings.ReplaceAll(value, "$", "")
	value = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)

	if lakhPattern.MatchString(value) {
		n.stats.Lakh++
	}

	parsed, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		n.stats.Failures++
		n.logger.Warn("Не удалось разобрать денежное значение %q, используется 0", raw)
		return decimal.Zero
	}

	n.stats.Parsed++
	return parsed
}

// stripInvisible заменяет невидимые символы обычным пробелом
func stripInvisible(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\ufeff':
			return -1
		case '\u00a0':
			return ' '
		}
		return r
	}, value)
}
