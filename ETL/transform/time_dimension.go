package transform

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// Названия дней недели
var dayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// TimeDimensionProcessor отвечает за построение измерения времени
type TimeDimensionProcessor struct {
	logger   *utils.ETLLogger
	holidays map[civil.Date]bool
}

// NewTimeDimensionProcessor создает новый экземпляр TimeDimensionProcessor.
// Даты праздников задаются в формате YYYY-MM-DD; некорректные пропускаются.
func NewTimeDimensionProcessor(logger *utils.ETLLogger, holidays []string) *TimeDimensionProcessor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	set := make(map[civil.Date]bool, len(holidays))
	for _, h := range holidays {
		d, ok := ParseISODate(h)
		if !ok {
			logger.Warn("Некорректная дата праздника %q пропущена", h)
			continue
		}
		set[d] = true
	}
	return &TimeDimensionProcessor{logger: logger, holidays: set}
}

// Build создает по одной строке на каждый день диапазона [minDate, maxDate] включительно
func (p *TimeDimensionProcessor) Build(minDate, maxDate civil.Date) []models.TimeDimension {
	if maxDate.Before(minDate) {
		return nil
	}

	rows := make([]models.TimeDimension, 0, maxDate.DaysSince(minDate)+1)
	for current := minDate; !current.After(maxDate); current = current.AddDays(1) {
		month := int(current.Month)
		quarter := (month-1)/3 + 1
		next := current.AddDays(1)
		monthEnd := next.Month != current.Month

		rows = append(rows, models.TimeDimension{
			ID:            len(rows) + 1,
			FullDate:      current,
			Year:          current.Year,
			Month:         month,
			Day:           current.Day,
			DayName:       dayNames[current.In(time.UTC).Weekday()],
			Quarter:       quarter,
			FiscalQuarter: quarter,
			IsMonthEnd:    monthEnd,
			IsQuarterEnd:  monthEnd && month%3 == 0,
			IsYearEnd:     month == 12 && current.Day == 31,
			IsHoliday:     p.holidays[current],
		})
	}

	p.logger.Debug("Измерение времени: %d дней (%s .. %s)", len(rows), minDate, maxDate)
	return rows
}

// BuildFromRecords строит измерение времени по диапазону дат записей.
// Записи без распознанной даты не участвуют.
func (p *TimeDimensionProcessor) BuildFromRecords(records []models.FinancialRecord) []models.TimeDimension {
	var minDate, maxDate civil.Date
	found := false
	for _, rec := range records {
		d, ok := ParseISODate(rec.Date)
		if !ok {
			continue
		}
		if !found || d.Before(minDate) {
			minDate = d
		}
		if !found || d.After(maxDate) {
			maxDate = d
		}
		found = true
	}
	if !found {
		p.logger.Warn("Нет ни одной корректной даты, измерение времени пустое")
		return nil
	}
	return p.Build(minDate, maxDate)
}
