package anomaly

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// MetricProfit метрика, по которой ищутся аномалии
const MetricProfit = "profit"

// Thresholds пороги отклонения в процентах
type Thresholds struct {
	Flag     float64
	Critical float64
	Below    float64
}

// ThresholdsFromConfig переносит пороги из конфигурации
func ThresholdsFromConfig(cfg config.AnomalyConfig) Thresholds {
	return Thresholds{Flag: cfg.FlagPercent, Critical: cfg.CriticalPercent, Below: cfg.BelowBaselinePercent}
}

// DefaultThresholds 100% для отметки, 200% для критичности, -50% для причины "ниже базовой линии"
var DefaultThresholds = Thresholds{Flag: 100, Critical: 200, Below: -50}

// Detector двухфазный поиск аномалий прибыли
type Detector struct {
	thresholds Thresholds
	logger     *utils.ETLLogger
	now        func() time.Time
	newID      func() string
}

// NewDetector создает новый экземпляр Detector
func NewDetector(thresholds Thresholds, logger *utils.ETLLogger) *Detector {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Detector{
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// QuarterOf квартал календарной даты в формате ISO; 0 если дата некорректна
func QuarterOf(date string) int {
	ts, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	return (int(ts.Month())-1)/3 + 1
}

// ComputeBaseline среднее и выборочное стандартное отклонение прибыли по (страна, квартал).
// Группа из одной записи получает отклонение 0.
func ComputeBaseline(records []models.FinancialRecord) map[models.BaselineKey]models.Baseline {
	groups := make(map[models.BaselineKey][]float64)
	for _, rec := range records {
		q := QuarterOf(rec.Date)
		if q == 0 {
			continue
		}
		key := models.BaselineKey{Country: rec.Country, Quarter: q}
		groups[key] = append(groups[key], rec.Profit.InexactFloat64())
	}

	baseline := make(map[models.BaselineKey]models.Baseline, len(groups))
	for key, values := range groups {
		n := len(values)
		if n == 0 {
			continue
		}
		var sum float64
		for _, v := range values {
			sum += v
		}
		mean := sum / float64(n)

		var std float64
		if n > 1 {
			var sq float64
			for _, v := range values {
				sq += (v - mean) * (v - mean)
			}
			std = math.Sqrt(sq / float64(n-1))
		}
		baseline[key] = models.Baseline{Mean: mean, Std: std, Count: n}
	}
	return baseline
}

// Deviation процентное отклонение от ожидаемого; false при нулевом ожидаемом
func Deviation(actual, expected float64) (float64, bool) {
	if expected == 0 {
		return 0, false
	}
	return (actual - expected) / expected * 100, true
}

// Severity уровень серьезности для отклонения
func (d *Detector) Severity(deviation float64) string {
	if math.Abs(deviation) > d.thresholds.Critical {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}

// RootCauses правило отнесения отклонения к одной из двух причин
func (d *Detector) RootCauses(rec models.FinancialRecord, quarter int, deviation float64) []models.RootCause {
	var causes []models.RootCause
	if deviation > d.thresholds.Flag {
		causes = append(causes, models.RootCause{
			Cause:          models.CauseProfitAboveBaseline,
			Details:        fmt.Sprintf("Lucro %.1f%% acima do esperado", deviation),
			Recommendation: fmt.Sprintf("Investigar estratégia de precificação em %s (Q%d)", rec.Country, quarter),
		})
	} else if deviation < d.thresholds.Below {
		causes = append(causes, models.RootCause{
			Cause:          models.CauseProfitBelowBaseline,
			Details:        fmt.Sprintf("Lucro %.1f%% abaixo do esperado", math.Abs(deviation)),
			Recommendation: fmt.Sprintf("Revisar política de descontos para %s em %s", rec.Product, rec.Country),
		})
	}
	return causes
}

// Detect оценивает записи по базовой линии. Записи без базовой линии своей группы
// или с нулевым средним пропускаются. Входные записи не изменяются.
func (d *Detector) Detect(records []models.FinancialRecord, baseline map[models.BaselineKey]models.Baseline) []models.Anomaly {
	var anomalies []models.Anomaly
	skipped := 0
	now := d.now()

	for _, rec := range records {
		quarter := QuarterOf(rec.Date)
		base, ok := baseline[models.BaselineKey{Country: rec.Country, Quarter: quarter}]
		if !ok {
			skipped++
			continue
		}

		actual := rec.Profit.InexactFloat64()
		deviation, ok := Deviation(actual, base.Mean)
		if !ok || math.Abs(deviation) <= d.thresholds.Flag {
			continue
		}

		anomalies = append(anomalies, models.Anomaly{
			ID:              d.newID(),
			Timestamp:       now,
			Type:            models.AlertTypeProfit,
			Severity:        d.Severity(deviation),
			Metric:          MetricProfit,
			Country:         rec.Country,
			Product:         rec.Product,
			TransactionDate: rec.Date,
			Quarter:         quarter,
			Values: models.AlertValues{
				Actual:           actual,
				Expected:         round2(base.Mean),
				DeviationPercent: round2(deviation),
			},
			RootCauses: d.RootCauses(rec, quarter, deviation),
		})
	}

	if skipped > 0 {
		d.logger.Debug("Пропущено %d записей без базовой линии", skipped)
	}
	d.logger.Info("Обнаружено %d аномалий среди %d записей", len(anomalies), len(records))
	return anomalies
}

// BuildAlertReport сводный отчет по аномалиям
func BuildAlertReport(anomalies []models.Anomaly, generated time.Time) models.AlertReport {
	report := models.AlertReport{
		Total:     len(anomalies),
		Generated: generated,
		Alerts:    anomalies,
	}
	for _, a := range anomalies {
		switch a.Severity {
		case models.SeverityCritical:
			report.Critical++
		case models.SeverityHigh:
			report.High++
		}
	}
	if report.Alerts == nil {
		report.Alerts = []models.Anomaly{}
	}
	return report
}

// AlertFileName имя файла отчета об аномалиях
func AlertFileName(now time.Time) string {
	return fmt.Sprintf("anomalies_%s.json", now.Format("20060102_150405"))
}

// WriteAlertReport записывает отчет в каталог оповещений.
// Если аномалий нет, файл не создается и возвращается пустой путь.
func WriteAlertReport(dir string, report models.AlertReport) (string, error) {
	if report.Total == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ошибка создания каталога оповещений: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации отчета об аномалиях: %w", err)
	}

	path := filepath.Join(dir, AlertFileName(report.Generated))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("ошибка записи отчета об аномалиях: %w", err)
	}
	return path, nil
}

// LatestAlertReport читает самый свежий отчет из каталога; nil если отчетов нет
func LatestAlertReport(dir string) (*models.AlertReport, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "anomalies_*.json"))
	if err != nil {
		return nil, "", err
	}
	if len(matches) == 0 {
		return nil, "", nil
	}

	// Имена содержат метку времени, лексикографический максимум самый свежий
	latest := matches[0]
	for _, m := range matches[1:] {
		if m > latest {
			latest = m
		}
	}

	data, err := os.ReadFile(latest)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка чтения отчета %s: %w", latest, err)
	}
	var report models.AlertReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, "", fmt.Errorf("ошибка разбора отчета %s: %w", latest, err)
	}
	return &report, latest, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
