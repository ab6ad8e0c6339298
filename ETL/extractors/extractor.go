package extractors

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// Extractor координирует чтение слоев Bronze и Silver из файлов
type Extractor struct {
	logger *utils.ETLLogger
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(logger *utils.ETLLogger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractBronze читает сырой файл Bronze и проверяет набор колонок
func (e *Extractor) ExtractBronze(path string) (models.RawTable, error) {
	startTime := time.Now()
	e.logger.LogExtractStart()

	table, err := ReadTableFile(path)
	if err != nil {
		e.logger.Error("Ошибка при чтении Bronze: %v", err)
		return table, fmt.Errorf("ошибка извлечения Bronze: %w", err)
	}

	if err := RequireColumns(table.Header, models.BronzeColumns); err != nil {
		e.logger.Error("Некорректная схема Bronze: %v", err)
		return table, fmt.Errorf("ошибка извлечения Bronze: %w", err)
	}

	e.logger.LogExtractComplete(table.Len(), time.Since(startTime))
	return table, nil
}

// ExtractSilver читает ранее записанный слой Silver и восстанавливает записи
func (e *Extractor) ExtractSilver(path string) ([]models.FinancialRecord, error) {
	startTime := time.Now()
	e.logger.LogExtractStart()

	table, err := ReadTableFile(path)
	if err != nil {
		e.logger.Error("Ошибка при чтении Silver: %v", err)
		return nil, fmt.Errorf("ошибка извлечения Silver: %w", err)
	}

	records, err := ParseSilverTable(table)
	if err != nil {
		e.logger.Error("Ошибка при разборе Silver: %v", err)
		return nil, fmt.Errorf("ошибка извлечения Silver: %w", err)
	}

	e.logger.LogExtractComplete(len(records), time.Since(startTime))
	return records, nil
}

// ParseSilverTable превращает таблицу Silver в записи; значения уже нормализованы
func ParseSilverTable(table models.RawTable) ([]models.FinancialRecord, error) {
	if err := RequireColumns(table.Header, models.SilverColumns); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(table.Header))
	for i, h := range table.Header {
		index[h] = i
	}

	records := make([]models.FinancialRecord, 0, table.Len())
	for rowIdx, row := range table.Rows {
		line := rowIdx + 2
		get := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}

		rec := models.FinancialRecord{
			Line:         line,
			Segment:      get(models.ColSegment),
			Country:      get(models.ColCountry),
			Product:      get(models.ColProduct),
			DiscountBand: get(models.ColDiscountBand),
			Date:         get(models.ColDate),
			MonthName:    get(models.ColMonthName),
		}

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
			{models.ColProfit, &rec.Profit},
		}
		for _, a := range amounts {
			value := strings.TrimSpace(get(a.col))
			if value == "" {
				continue
			}
			d, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("строка %d, колонка %s: %w", line, a.col, err)
			}
			*a.dst = d
		}

		var err error
		if rec.MonthNumber, err = atoiOrZero(get(models.ColMonthNumber)); err != nil {
			return nil, fmt.Errorf("строка %d, колонка %s: %w", line, models.ColMonthNumber, err)
		}
		if rec.Year, err = atoiOrZero(get(models.ColYear)); err != nil {
			return nil, fmt.Errorf("строка %d, колонка %s: %w", line, models.ColYear, err)
		}

		records = append(records, rec)
	}

	return records, nil
}

func atoiOrZero(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
