package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// SilverResult результат преобразования Bronze → Silver
type SilverResult struct {
	// Нормализованные заголовки в порядке источника
	Header  []string
	Records []models.FinancialRecord

	Parse           ParseStats
	NegativeProfits int
	InvalidDates    int
	InvalidInts     int
	Duration        time.Duration
}

// SilverEngine применяет правила очистки: заголовки, полярность, денежные значения, даты
type SilverEngine struct {
	logger     *utils.ETLLogger
	dateLayout string
}

// NewSilverEngine создает новый экземпляр SilverEngine
func NewSilverEngine(logger *utils.ETLLogger, dateLayout string) *SilverEngine {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if dateLayout == "" {
		dateLayout = "2/1/2006"
	}
	return &SilverEngine{logger: logger, dateLayout: dateLayout}
}

// Transform преобразует сырую таблицу Bronze в записи Silver.
// Количество записей всегда равно количеству строк Bronze.
func (e *SilverEngine) Transform(bronze models.RawTable) (*SilverResult, error) {
	startTime := time.Now()
	e.logger.Info("Начало фазы Transform (Bronze → Silver)")

	// 1. Нормализация заголовков
	header := NormalizeHeaders(bronze.Header)
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, exists := index[h]; !exists {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range models.SilverColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("после нормализации заголовков отсутствуют колонки: %s", strings.Join(missing, ", "))
	}
	for i, raw := range bronze.Header {
		if raw != header[i] {
			e.logger.Debug("Заголовок '%s' → '%s'", raw, header[i])
		}
	}

	money := NewMonetaryNormalizer(e.logger)
	result := &SilverResult{
		Header:  header,
		Records: make([]models.FinancialRecord, 0, bronze.Len()),
	}

	for rowIdx, row := range bronze.Rows {
		get := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}

		rec := models.FinancialRecord{
			Line:         rowIdx + 2,
			Segment:      cleanText(get(models.ColSegment)),
			Country:      cleanText(get(models.ColCountry)),
			Product:      cleanText(get(models.ColProduct)),
			DiscountBand: cleanText(get(models.ColDiscountBand)),
			MonthName:    cleanText(get(models.ColMonthName)),
		}

		// 2. Полярность прибыли до денежного разбора
		negative, inner := ResolvePolarity(get(models.ColProfit))
		if negative {
			rec.Profit = money.ParseString(inner).Neg()
			result.NegativeProfits++
		} else {
			rec.Profit = money.ParseString(get(models.ColProfit))
		}

		// 3. Денежные колонки
		amounts := []struct {
			col string
			dst *decimal.Decimal
		}{
			{models.ColUnitsSold, &rec.UnitsSold},
			{models.ColManufacturingPrice, &rec.ManufacturingPrice},
			{models.ColSalePrice, &rec.SalePrice},
			{models.ColGrossSales, &rec.GrossSales},
			{models.ColDiscounts, &rec.Discounts},
			{models.ColSales, &rec.NetSales},
			{models.ColCOGS, &rec.COGS},
		}
		for _, a := range amounts {
			*a.dst = money.ParseString(get(a.col))
		}

		// 4. Даты в ISO-8601
		rawDate := get(models.ColDate)
		rec.Date = NormalizeDate(rawDate, e.dateLayout)
		if rec.Date == "" && strings.TrimSpace(rawDate) != "" {
			result.InvalidDates++
			e.logger.Warn("Строка %d: дата %q не распознана", rec.Line, rawDate)
		}

		var ok bool
		if rec.MonthNumber, ok = parseInt(get(models.ColMonthNumber)); !ok {
			result.InvalidInts++
		}
		if rec.Year, ok = parseInt(get(models.ColYear)); !ok {
			result.InvalidInts++
		}

		result.Records = append(result.Records, rec)
	}

	result.Parse = money.Stats()
	result.Duration = time.Since(startTime)

	e.logger.Info("Полярность: %d значений прибыли переведены в отрицательные", result.NegativeProfits)
	e.logger.Info("Денежный разбор: %d значений, индийская группировка: %d, \"$-\": %d, ошибок: %d",
		result.Parse.Parsed, result.Parse.Lakh, result.Parse.DollarDash, result.Parse.Failures)
	e.logger.LogStage("bronze_to_silver", len(result.Records), result.Duration)

	return result, nil
}

// Table возвращает Silver в виде выгружаемой таблицы
func (r *SilverResult) Table() models.Table {
	rows := make([][]string, len(r.Records))
	for i, rec := range r.Records {
		rows[i] = rec.Values()
	}
	return models.Table{
		Name:    "silver",
		Columns: append([]string(nil), models.SilverColumns...),
		Rows:    rows,
	}
}

func cleanText(value string) string {
	return strings.TrimSpace(stripInvisible(value))
}

// parseInt разбирает целое; пустое или некорректное значение дает 0 и false
func parseInt(value string) (int, bool) {
	value = cleanText(value)
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}
