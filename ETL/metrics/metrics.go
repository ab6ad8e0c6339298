package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

const namespace = "finance_etl"

// Pipeline метрики одного процесса ETL
type Pipeline struct {
	registry *prometheus.Registry

	Rows          *prometheus.CounterVec
	StageDuration *prometheus.GaugeVec
	Runs          *prometheus.CounterVec
	Anomalies     *prometheus.CounterVec
	Quarantined   prometheus.Counter
	ParseFailures prometheus.Counter
	LastSuccess   prometheus.Gauge
	Watermark     prometheus.Gauge
}

// NewPipeline регистрирует метрики конвейера в отдельном реестре
func NewPipeline() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Строки, прошедшие этап конвейера.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Длительность последнего выполнения этапа.",
		}, []string{"stage"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Запуски конвейера по статусу.",
		}, []string{"status"}),
		Anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Найденные аномалии по серьезности.",
		}, []string{"severity"}),
		Quarantined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quarantined_records_total",
			Help:      "Записи, отклоненные контрактом данных.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Денежные значения, замененные нулем из-за ошибки разбора.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Время последнего успешного запуска.",
		}),
		Watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_timestamp_seconds",
			Help:      "Текущий водяной знак инкрементальной загрузки.",
		}),
	}

	p.registry.MustRegister(
		p.Rows, p.StageDuration, p.Runs, p.Anomalies,
		p.Quarantined, p.ParseFailures, p.LastSuccess, p.Watermark,
	)
	return p
}

// Registry реестр для экспорта
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveStage фиксирует строки и длительность этапа
func (p *Pipeline) ObserveStage(stage string, rows int, duration time.Duration) {
	p.Rows.WithLabelValues(stage).Add(float64(rows))
	p.StageDuration.WithLabelValues(stage).Set(duration.Seconds())
}

// ObserveAnomalies считает аномалии по серьезности
func (p *Pipeline) ObserveAnomalies(anomalies []models.Anomaly) {
	for _, a := range anomalies {
		p.Anomalies.WithLabelValues(a.Severity).Inc()
	}
}

// ObserveRun фиксирует итог запуска
func (p *Pipeline) ObserveRun(status string, end time.Time) {
	p.Runs.WithLabelValues(status).Inc()
	if status == models.RunStatusSuccess {
		p.LastSuccess.Set(float64(end.Unix()))
	}
}

// WriteTextfile записывает метрики в формате textfile-коллектора node_exporter
func (p *Pipeline) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога метрик: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("ошибка записи метрик %s: %w", path, err)
	}
	return nil
}

// RunLogCollector отдает показатели журнала запусков при каждом опросе
type RunLogCollector struct {
	repo models.ETLLogRepository

	lastRows     *prometheus.Desc
	lastDuration *prometheus.Desc
	lastEnd      *prometheus.Desc
	up           *prometheus.Desc
}

// NewRunLogCollector создает коллектор над журналом запусков
func NewRunLogCollector(repo models.ETLLogRepository) *RunLogCollector {
	return &RunLogCollector{
		repo: repo,
		lastRows: prometheus.NewDesc(namespace+"_last_run_rows",
			"Строки последнего успешного запуска по этапам.", []string{"stage"}, nil),
		lastDuration: prometheus.NewDesc(namespace+"_last_run_duration_seconds",
			"Длительность последнего успешного запуска.", nil, nil),
		lastEnd: prometheus.NewDesc(namespace+"_last_run_end_timestamp_seconds",
			"Время окончания последнего успешного запуска.", nil, nil),
		up: prometheus.NewDesc(namespace+"_run_log_up",
			"1 если журнал запусков доступен.", nil, nil),
	}
}

// Describe реализует prometheus.Collector
func (c *RunLogCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lastRows
	ch <- c.lastDuration
	ch <- c.lastEnd
	ch <- c.up
}

// Collect реализует prometheus.Collector
func (c *RunLogCollector) Collect(ch chan<- prometheus.Metric) {
	run, err := c.repo.GetLastSuccessfulRun()
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	if run == nil {
		return
	}

	for stage, rows := range map[string]int{
		"bronze":   run.BronzeRows,
		"silver":   run.SilverRows,
		"valid":    run.ValidRows,
		"rejected": run.RejectedRows,
		"delta":    run.DeltaRows,
		"anomaly":  run.AnomalyCount,
	} {
		ch <- prometheus.MustNewConstMetric(c.lastRows, prometheus.GaugeValue, float64(rows), stage)
	}
	ch <- prometheus.MustNewConstMetric(c.lastDuration, prometheus.GaugeValue, run.ExecutionTimeSeconds)
	if run.EndTime != nil {
		ch <- prometheus.MustNewConstMetric(c.lastEnd, prometheus.GaugeValue, float64(run.EndTime.Unix()))
	}
}
