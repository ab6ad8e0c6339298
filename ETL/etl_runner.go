package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/LilVoxy/finance_etl/ETL/anomaly"
	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/contract"
	"github.com/LilVoxy/finance_etl/ETL/extractors"
	"github.com/LilVoxy/finance_etl/ETL/load"
	"github.com/LilVoxy/finance_etl/ETL/metrics"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/quality"
	"github.com/LilVoxy/finance_etl/ETL/security"
	"github.com/LilVoxy/finance_etl/ETL/transform"
	"github.com/LilVoxy/finance_etl/ETL/utils"
	"github.com/LilVoxy/finance_etl/ETL/watermark"
)

// ComparisonReportName имя сравнительного отчета Bronze/Silver в каталоге отчетов
const ComparisonReportName = "transformation_report.md"

// XLSXFileName имя книги Excel со слоем Gold
const XLSXFileName = "gold.xlsx"

type ETLRunner struct {
	config        config.ETLConfig
	dbConnections *config.DBConnections
	logger        *utils.ETLLogger
	extractor     *extractors.Extractor
	validator     *quality.Validator
	transformer   *transform.Transformer
	contract      *contract.Contract
	loadManager   *load.LoadManager
	watermarks    *watermark.Store
	incremental   *watermark.Incremental
	detector      *anomaly.Detector
	vault         *security.Vault
	auditor       *security.Auditor
	exporter      *load.SecureExporter
	etlLogRepo    *models.SQLiteETLLogRepository
	metrics       *metrics.Pipeline
	now           func() time.Time
}

// RunResult итог одного запуска конвейера
type RunResult struct {
	RunID          string             `json:"run_id"`
	Counts         models.RunCounts   `json:"counts"`
	QualityReport  string             `json:"quality_report,omitempty"`
	QuarantineFile string             `json:"quarantine_file,omitempty"`
	AlertReport    string             `json:"alert_report,omitempty"`
	SecureExports  []string           `json:"secure_exports,omitempty"`
	Watermark      *watermark.Pending `json:"-"`
}

// NewETLRunner создает новый экземпляр ETLRunner
func NewETLRunner(etlConfig config.ETLConfig, logger *utils.ETLLogger) (*ETLRunner, error) {
	logger.Info("Инициализация ETL Runner")

	lookups := config.DefaultLookups()
	if etlConfig.Paths.LookupsFile != "" {
		loaded, err := config.LoadLookups(etlConfig.Paths.LookupsFile)
		if err != nil {
			return nil, err
		}
		lookups = loaded
	}

	// Подключаемся к базам данных
	connections, err := config.ConnectDatabases(etlConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базам данных: %w", err)
	}

	// Инициализируем репозиторий логов ETL
	etlLogRepo := models.NewSQLiteETLLogRepository(connections.MetadataDB)

	// Создаем таблицу логов, если она еще не существует
	if err := etlLogRepo.CreateETLLogTable(); err != nil {
		config.CloseDatabases(connections)
		return nil, fmt.Errorf("ошибка при создании таблицы логов ETL: %w", err)
	}

	store, err := watermark.NewStore(connections.MetadataDB)
	if err != nil {
		config.CloseDatabases(connections)
		return nil, err
	}

	vault, err := security.OpenVault(etlConfig.Paths.MasterKeyPath(), etlConfig.Paths.SaltPath(), config.VaultPassphrase())
	if err != nil {
		config.CloseDatabases(connections)
		return nil, err
	}
	auditor := security.NewAuditor(security.NewFileSink(etlConfig.Paths.AuditDir), logger)

	exporter, err := load.NewSecureExporter(etlConfig.Paths.GoldDir, vault, auditor, etlConfig.Pipeline.SensitiveColumns, logger)
	if err != nil {
		config.CloseDatabases(connections)
		return nil, err
	}

	// Цели загрузки: CSV всегда, книга Excel и хранилище по настройке
	loaders := []load.Loader{load.NewCSVLoader(etlConfig.Paths.GoldDir, logger)}
	if etlConfig.Pipeline.ExportXLSX {
		loaders = append(loaders, load.NewXLSXLoader(filepath.Join(etlConfig.Paths.GoldDir, XLSXFileName), logger))
	}
	if connections.WarehouseDB != nil {
		loaders = append(loaders, load.NewWarehouseLoader(connections.WarehouseDB, logger))
	}

	return &ETLRunner{
		config:        etlConfig,
		dbConnections: connections,
		logger:        logger,
		extractor:     extractors.NewExtractor(logger),
		validator:     quality.NewValidator(logger),
		transformer:   transform.NewTransformer(logger, lookups, etlConfig.Pipeline.BronzeDateLayout),
		contract:      contract.New(),
		loadManager:   load.NewLoadManager(logger, auditor, loaders...),
		watermarks:    store,
		incremental:   watermark.NewIncremental(store, logger),
		detector:      anomaly.NewDetector(anomaly.ThresholdsFromConfig(etlConfig.Anomaly), logger),
		vault:         vault,
		auditor:       auditor,
		exporter:      exporter,
		etlLogRepo:    etlLogRepo,
		metrics:       metrics.NewPipeline(),
		now:           time.Now,
	}, nil
}

// Close закрывает соединения с базами данных
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	if err := config.CloseDatabases(r.dbConnections); err != nil {
		r.logger.Error("Ошибка при закрытии соединений: %v", err)
	}
}

// ValidateBronze проверяет качество файла Bronze и пишет отчет или карантин
func (r *ETLRunner) ValidateBronze() (models.QualityReport, string, error) {
	table, err := extractors.ReadTableFile(r.config.Paths.BronzeFile)
	if err != nil {
		return models.QualityReport{}, "", fmt.Errorf("ошибка чтения Bronze: %w", err)
	}
	return r.validator.Gate(table, r.config.Paths.BronzeFile, r.config.Paths.QuarantineDir, r.config.Paths.ReportsDir)
}

// TransformSilver очищает Bronze, записывает Silver и сравнительный отчет
func (r *ETLRunner) TransformSilver(bronze models.RawTable) (*transform.SilverResult, error) {
	silver, err := r.transformer.ToSilver(bronze)
	if err != nil {
		return nil, err
	}

	table := silver.Table()
	_, err = security.Run(r.auditor, security.OpWrite, "write_silver", []string{r.config.Paths.SilverFile}, func() (models.Table, error) {
		return table, utils.WriteCSVFile(r.config.Paths.SilverFile, table.Columns, table.Rows)
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка записи Silver: %w", err)
	}

	reportPath := filepath.Join(r.config.Paths.ReportsDir, ComparisonReportName)
	if err := transform.WriteComparisonReport(reportPath, bronze, silver, r.config.Pipeline.SampleRows); err != nil {
		// Отчет вспомогательный, запуск продолжается
		r.logger.Warn("Не удалось записать сравнительный отчет: %v", err)
	}

	r.metrics.ObserveStage("silver", len(silver.Records), silver.Duration)
	r.metrics.ParseFailures.Add(float64(silver.Parse.Failures))
	r.logger.Info("Silver записан: %s (%d строк)", r.config.Paths.SilverFile, len(silver.Records))
	return silver, nil
}

// ApplyContract отделяет записи, нарушающие контракт данных, и пишет их в карантин
func (r *ETLRunner) ApplyContract(records []models.FinancialRecord) ([]models.FinancialRecord, []models.ContractViolation, string, error) {
	startTime := time.Now()
	valid, violations := r.contract.ValidateBatch(records)

	path, err := contract.WriteQuarantine(r.config.Paths.QuarantineDir, violations, r.now())
	if err != nil {
		return nil, nil, "", err
	}
	if len(violations) > 0 {
		r.logger.Warn("Контракт данных: отклонено %d записей, карантин %s", len(violations), path)
	}

	r.metrics.ObserveStage("contract", len(valid), time.Since(startTime))
	r.metrics.Quarantined.Add(float64(len(violations)))
	return valid, violations, path, nil
}

// BuildAndLoadGold перестраивает звездную схему и выгружает ее во все цели
func (r *ETLRunner) BuildAndLoadGold(records []models.FinancialRecord) ([]models.Table, error) {
	startTime := time.Now()
	schema, err := r.transformer.BuildGold(records)
	if err != nil {
		return nil, err
	}

	tables := transform.TranslatedGoldTables(schema)
	if err := r.loadManager.Load(tables); err != nil {
		return nil, err
	}

	r.metrics.ObserveStage("gold", len(schema.Facts), time.Since(startTime))
	return tables, nil
}

// DetectAnomalies оценивает инкрементальную дельту относительно базовой линии по всем записям.
// Водяной знак не фиксируется: это делает вызывающий после записи всех результатов.
func (r *ETLRunner) DetectAnomalies(ctx context.Context, records []models.FinancialRecord) ([]models.Anomaly, *watermark.Pending, string, error) {
	startTime := time.Now()

	delta, pending, err := r.incremental.Delta(ctx, r.config.Pipeline.Name, records)
	if err != nil {
		return nil, nil, "", fmt.Errorf("ошибка инкрементального отбора: %w", err)
	}

	baseline := anomaly.ComputeBaseline(records)
	anomalies := r.detector.Detect(delta, baseline)

	report := anomaly.BuildAlertReport(anomalies, r.now())
	path, err := anomaly.WriteAlertReport(r.config.Paths.AlertsDir, report)
	if err != nil {
		return nil, nil, "", err
	}
	if path != "" {
		r.logger.Warn("Аномалий: %d (критических %d, высоких %d), отчет %s",
			report.Total, report.Critical, report.High, path)
	}

	r.metrics.ObserveStage("delta", len(delta), time.Since(startTime))
	r.metrics.ObserveAnomalies(anomalies)
	return anomalies, pending, path, nil
}

// CommitWatermark фиксирует водяной знак после записи всех результатов
func (r *ETLRunner) CommitWatermark(ctx context.Context, pending *watermark.Pending) error {
	if err := r.incremental.Commit(ctx, pending); err != nil {
		return fmt.Errorf("ошибка фиксации водяного знака: %w", err)
	}
	if pending != nil {
		r.metrics.Watermark.Set(float64(pending.Timestamp.Unix()))
	}
	return nil
}

// ExecuteETL выполняет полный ETL процесс
func (r *ETLRunner) ExecuteETL(ctx context.Context) (*RunResult, error) {
	r.logger.LogETLStart()
	startTime := r.now()

	result := &RunResult{RunID: uuid.NewString()}

	// Создаем запись в журнале ETL
	logID, err := r.etlLogRepo.CreateLogEntry(result.RunID, startTime)
	if err != nil {
		r.logger.Error("Ошибка при создании записи в журнале ETL: %v", err)
		return nil, fmt.Errorf("ошибка при создании записи в журнале ETL: %w", err)
	}

	fail := func(phase string, err error) (*RunResult, error) {
		errMsg := fmt.Sprintf("Ошибка в фазе %s: %v", phase, err)
		r.logger.Error(errMsg)
		r.updateETLRunLogFailure(logID, errMsg)
		return result, fmt.Errorf("ошибка в фазе %s: %w", phase, err)
	}

	// 1. Фаза извлечения данных (Extract)
	bronze, err := r.extractor.ExtractBronze(r.config.Paths.BronzeFile)
	if err != nil {
		return fail("Extract", err)
	}
	result.Counts.BronzeRows = bronze.Len()
	r.metrics.ObserveStage("bronze", bronze.Len(), r.now().Sub(startTime))

	// 2. Проверка качества Bronze
	_, reportPath, err := r.validator.Gate(bronze, r.config.Paths.BronzeFile, r.config.Paths.QuarantineDir, r.config.Paths.ReportsDir)
	result.QualityReport = reportPath
	switch {
	case errors.Is(err, quality.ErrBatchQuarantined) && !r.config.Pipeline.StrictBronzeGate:
		r.logger.Warn("Bronze не прошел проверки качества, продолжаем очистку (отчет %s)", reportPath)
	case err != nil:
		return fail("Quality", err)
	}

	// 3. Фаза очистки (Bronze → Silver)
	silver, err := r.TransformSilver(bronze)
	if err != nil {
		return fail("Silver", err)
	}
	result.Counts.SilverRows = len(silver.Records)

	// 4. Контракт данных
	valid, violations, quarantinePath, err := r.ApplyContract(silver.Records)
	if err != nil {
		return fail("Contract", err)
	}
	result.Counts.ValidRows = len(valid)
	result.Counts.RejectedRows = len(violations)
	result.QuarantineFile = quarantinePath

	// 5. Построение и загрузка Gold
	tables, err := r.BuildAndLoadGold(valid)
	if err != nil {
		return fail("Gold", err)
	}

	// 6. Инкрементальная дельта и аномалии
	anomalies, pending, alertPath, err := r.DetectAnomalies(ctx, valid)
	if err != nil {
		return fail("Monitor", err)
	}
	result.Watermark = pending
	result.AlertReport = alertPath
	result.Counts.AnomalyCount = len(anomalies)
	if pending != nil {
		result.Counts.DeltaRows = pending.Count
	}

	// 7. Защищенная копия чувствительных колонок
	exports, err := r.exporter.Export(tables)
	if err != nil {
		return fail("SecureExport", err)
	}
	result.SecureExports = exports

	// 8. Водяной знак фиксируется последним
	if err := r.CommitWatermark(ctx, pending); err != nil {
		return fail("Watermark", err)
	}

	r.updateETLRunLogSuccess(logID, result.Counts)
	r.logger.LogETLComplete(startTime, result.Counts.SilverRows, len(tables), result.Counts.AnomalyCount)
	return result, nil
}

// updateETLRunLogSuccess обновляет лог запуска ETL при успешном завершении
func (r *ETLRunner) updateETLRunLogSuccess(logID int, counts models.RunCounts) {
	endTime := r.now()
	if err := r.etlLogRepo.UpdateLogEntrySuccess(logID, endTime, counts); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
	r.metrics.ObserveRun(models.RunStatusSuccess, endTime)
	r.writeMetrics()
}

// updateETLRunLogFailure обновляет лог запуска ETL при ошибке
func (r *ETLRunner) updateETLRunLogFailure(logID int, errorMessage string) {
	endTime := r.now()
	if err := r.etlLogRepo.UpdateLogEntryFailure(logID, endTime, errorMessage); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
	r.metrics.ObserveRun(models.RunStatusFailed, endTime)
	r.writeMetrics()
}

func (r *ETLRunner) writeMetrics() {
	if err := r.metrics.WriteTextfile(r.config.Paths.MetricsFile); err != nil {
		r.logger.Warn("Не удалось записать метрики: %v", err)
	}
}

// StartScheduler запускает планировщик ETL процессов
func (r *ETLRunner) StartScheduler(ctx context.Context) error {
	interval := r.config.Pipeline.RunInterval
	r.logger.Info("Запуск планировщика ETL с интервалом %v", interval)

	scheduler := gocron.NewScheduler(time.UTC)
	// Следующий запуск не начинается, пока не завершен предыдущий
	scheduler.SingletonModeAll()

	_, err := scheduler.Every(interval).Do(func() {
		if _, err := r.ExecuteETL(ctx); err != nil {
			r.logger.Error("Ошибка при выполнении ETL: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке планировщика: %w", err)
	}

	scheduler.StartAsync()
	r.logger.Info("Планировщик ETL запущен")

	<-ctx.Done()
	scheduler.Stop()
	r.logger.Info("Планировщик ETL остановлен")
	return nil
}

// RunScheduled запускает ETL по расписанию до получения сигнала остановки
func RunScheduled(runner *ETLRunner) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		runner.logger.Info("Получен сигнал остановки, завершаем работу...")
	}()

	return runner.StartScheduler(ctx)
}

// RunOnce выполняет один запуск ETL с остановкой по сигналу
func RunOnce(runner *ETLRunner) (*RunResult, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return runner.ExecuteETL(ctx)
}
