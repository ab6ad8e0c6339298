package quality

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// ErrBatchQuarantined партия не прошла проверки и отправлена в карантин
var ErrBatchQuarantined = errors.New("партия Bronze отправлена в карантин")

// Validator проверки качества слоя Bronze
type Validator struct {
	logger *utils.ETLLogger
	now    func() time.Time
}

// NewValidator создает новый экземпляр Validator
func NewValidator(logger *utils.ETLLogger) *Validator {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Validator{logger: logger, now: time.Now}
}

// Validate выполняет все проверки и собирает отчет; файлы не пишет
func (v *Validator) Validate(table models.RawTable, source string) models.QualityReport {
	report := models.QualityReport{
		RunID:     uuid.NewString(),
		Source:    source,
		Timestamp: v.now(),
		RowCount:  table.Len(),
	}

	report.Results = append(report.Results, ExpectColumns(table, models.BronzeColumns))
	for _, col := range LakhColumns {
		report.Results = append(report.Results, ExpectNoLakhNotation(table, col))
	}
	report.Results = append(report.Results, ExpectNoDollarDashNotation(table, models.BronzeDiscounts))
	report.Results = append(report.Results, ExpectNoParenthesesNegative(table, models.BronzeProfit))
	for _, col := range table.Header {
		report.Results = append(report.Results, ExpectNoInvisibleCharacters(table, col))
	}

	for _, r := range report.Results {
		if !r.Success {
			report.Failed++
			v.logger.Warn("Проверка %s не пройдена (колонка %q): %d значений (%.2f%%)",
				r.Expectation, r.Column, r.UnexpectedCount, r.UnexpectedPct)
		}
	}
	report.Success = report.Failed == 0
	return report
}

// Gate проверяет партию и пишет артефакты. При неудаче партия копируется в карантин
// вместе с отчетом, и возвращается ErrBatchQuarantined; при успехе пишется отчет об успехе.
func (v *Validator) Gate(table models.RawTable, source, quarantineDir, reportsDir string) (models.QualityReport, string, error) {
	report := v.Validate(table, source)
	stamp := report.Timestamp.Format("20060102_150405")

	if report.Success {
		path := filepath.Join(reportsDir, fmt.Sprintf("validation_success_%s.json", stamp))
		if err := writeJSON(path, report); err != nil {
			return report, "", err
		}
		v.logger.Info("Партия Bronze одобрена: %d строк, отчет %s", report.RowCount, path)
		return report, path, nil
	}

	batchPath := filepath.Join(quarantineDir, fmt.Sprintf("bronze_failed_%s.csv", stamp))
	if err := utils.WriteCSVFile(batchPath, table.Header, table.Rows); err != nil {
		return report, "", err
	}
	report.Quarantine = batchPath

	path := filepath.Join(quarantineDir, fmt.Sprintf("report_%s.json", stamp))
	if err := writeJSON(path, report); err != nil {
		return report, "", err
	}
	v.logger.Warn("Партия Bronze в карантине: %d проверок не пройдено, файл %s", report.Failed, batchPath)
	return report, path, ErrBatchQuarantined
}

// LatestReport последний отчет о качестве из каталогов отчетов и карантина
func LatestReport(reportsDir, quarantineDir string) (*models.QualityReport, error) {
	var candidates []string
	for _, pattern := range []string{
		filepath.Join(reportsDir, "validation_success_*.json"),
		filepath.Join(quarantineDir, "report_*.json"),
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, matches...)
	}

	var latest *models.QualityReport
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения отчета %s: %w", path, err)
		}
		var report models.QualityReport
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("ошибка разбора отчета %s: %w", path, err)
		}
		if latest == nil || report.Timestamp.After(latest.Timestamp) {
			r := report
			latest = &r
		}
	}
	return latest, nil
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации отчета: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ошибка записи отчета %s: %w", path, err)
	}
	return nil
}
