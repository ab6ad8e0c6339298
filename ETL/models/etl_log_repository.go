package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLiteETLLogRepository реализация ETLLogRepository поверх базы метаданных SQLite
type SQLiteETLLogRepository struct {
	db *sqlx.DB
}

// NewSQLiteETLLogRepository создает новый экземпляр SQLiteETLLogRepository
func NewSQLiteETLLogRepository(db *sqlx.DB) *SQLiteETLLogRepository {
	return &SQLiteETLLogRepository{
		db: db,
	}
}

const runLogColumns = `
	id, run_uuid, start_time, end_time, status,
	bronze_rows, silver_rows, valid_rows, rejected_rows, delta_rows, anomaly_count,
	COALESCE(error_message, '') AS error_message,
	COALESCE(execution_time_seconds, 0) AS execution_time_seconds`

// CreateETLLogTable создает таблицу для логирования ETL процесса, если она не существует
func (r *SQLiteETLLogRepository) CreateETLLogTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS etl_run_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_uuid TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NULL,
		status TEXT NOT NULL DEFAULT 'in_progress'
			CHECK (status IN ('success', 'failed', 'in_progress')),
		bronze_rows INTEGER DEFAULT 0,
		silver_rows INTEGER DEFAULT 0,
		valid_rows INTEGER DEFAULT 0,
		rejected_rows INTEGER DEFAULT 0,
		delta_rows INTEGER DEFAULT 0,
		anomaly_count INTEGER DEFAULT 0,
		error_message TEXT,
		execution_time_seconds REAL
	);
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_run_log: %w", err)
	}

	return nil
}

// CreateLogEntry создает новую запись о запуске ETL
func (r *SQLiteETLLogRepository) CreateLogEntry(runUUID string, startTime time.Time) (int, error) {
	query := `INSERT INTO etl_run_log (run_uuid, start_time, status) VALUES (?, ?, 'in_progress')`

	result, err := r.db.Exec(query, runUUID, startTime.UTC())
	if err != nil {
		return 0, fmt.Errorf("ошибка при создании записи о запуске ETL: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении ID созданной записи: %w", err)
	}

	return int(id), nil
}

// executionSeconds рассчитывает время выполнения по времени начала записи
func (r *SQLiteETLLogRepository) executionSeconds(id int, endTime time.Time) (float64, error) {
	var startTime time.Time
	if err := r.db.Get(&startTime, "SELECT start_time FROM etl_run_log WHERE id = ?", id); err != nil {
		return 0, fmt.Errorf("ошибка при получении времени начала ETL: %w", err)
	}
	return endTime.Sub(startTime).Seconds(), nil
}

// UpdateLogEntrySuccess обновляет запись при успешном завершении ETL
func (r *SQLiteETLLogRepository) UpdateLogEntrySuccess(id int, endTime time.Time, counts RunCounts) error {
	executionTime, err := r.executionSeconds(id, endTime)
	if err != nil {
		return err
	}

	query := `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = 'success',
		bronze_rows = ?,
		silver_rows = ?,
		valid_rows = ?,
		rejected_rows = ?,
		delta_rows = ?,
		anomaly_count = ?,
		execution_time_seconds = ?
	WHERE id = ?
	`

	_, err = r.db.Exec(query,
		endTime.UTC(),
		counts.BronzeRows,
		counts.SilverRows,
		counts.ValidRows,
		counts.RejectedRows,
		counts.DeltaRows,
		counts.AnomalyCount,
		executionTime,
		id,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}

	return nil
}

// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
func (r *SQLiteETLLogRepository) UpdateLogEntryFailure(id int, endTime time.Time, errorMessage string) error {
	executionTime, err := r.executionSeconds(id, endTime)
	if err != nil {
		return err
	}

	query := `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = 'failed',
		error_message = ?,
		execution_time_seconds = ?
	WHERE id = ?
	`

	if _, err := r.db.Exec(query, endTime.UTC(), errorMessage, executionTime, id); err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}

	return nil
}

// lastRunWithStatus возвращает последний запуск с указанным статусом или nil
func (r *SQLiteETLLogRepository) lastRunWithStatus(status string) (*ETLRunLog, error) {
	query := `SELECT` + runLogColumns + `
	FROM etl_run_log
	WHERE status = ?
	ORDER BY end_time DESC, id DESC
	LIMIT 1`

	var log ETLRunLog
	if err := r.db.Get(&log, query, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL
func (r *SQLiteETLLogRepository) GetLastSuccessfulRun() (*ETLRunLog, error) {
	log, err := r.lastRunWithStatus(RunStatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении информации о последнем успешном запуске ETL: %w", err)
	}
	return log, nil
}

// GetRecentRuns получает последние запуски ETL
func (r *SQLiteETLLogRepository) GetRecentRuns(limit int) ([]ETLRunLog, error) {
	query := `SELECT` + runLogColumns + `
	FROM etl_run_log
	ORDER BY start_time DESC, id DESC
	LIMIT ?`

	var logs []ETLRunLog
	if err := r.db.Select(&logs, query, limit); err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков ETL: %w", err)
	}

	return logs, nil
}

// GetETLStateMonitor получает информацию о текущем состоянии ETL процесса
func (r *SQLiteETLLogRepository) GetETLStateMonitor() (*ETLStateMonitor, error) {
	lastSuccessful, err := r.GetLastSuccessfulRun()
	if err != nil {
		return nil, err
	}

	lastFailed, err := r.lastRunWithStatus(RunStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении информации о последнем неудачном запуске ETL: %w", err)
	}

	var stats struct {
		Successful int     `db:"successful"`
		Failed     int     `db:"failed"`
		AvgSeconds float64 `db:"avg_seconds"`
	}
	query := `
	SELECT
		COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) AS successful,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed,
		COALESCE(AVG(CASE WHEN status = 'success' THEN execution_time_seconds END), 0) AS avg_seconds
	FROM etl_run_log
	`
	if err := r.db.Get(&stats, query); err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики ETL: %w", err)
	}

	return &ETLStateMonitor{
		LastSuccessfulRun:       lastSuccessful,
		LastFailedRun:           lastFailed,
		TotalSuccessfulRuns:     stats.Successful,
		TotalFailedRuns:         stats.Failed,
		AvgExecutionTimeSeconds: stats.AvgSeconds,
	}, nil
}
