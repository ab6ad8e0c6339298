package models

import (
	"time"
)

// Статусы запуска ETL
const (
	RunStatusSuccess    = "success"
	RunStatusFailed     = "failed"
	RunStatusInProgress = "in_progress"
)

// ETLRunLog представляет запись о запуске ETL процесса
type ETLRunLog struct {
	ID                   int        `db:"id" json:"id"`
	RunUUID              string     `db:"run_uuid" json:"run_uuid"`
	StartTime            time.Time  `db:"start_time" json:"start_time"`
	EndTime              *time.Time `db:"end_time" json:"end_time,omitempty"`
	Status               string     `db:"status" json:"status"` // "success", "failed", "in_progress"
	BronzeRows           int        `db:"bronze_rows" json:"bronze_rows"`
	SilverRows           int        `db:"silver_rows" json:"silver_rows"`
	ValidRows            int        `db:"valid_rows" json:"valid_rows"`
	RejectedRows         int        `db:"rejected_rows" json:"rejected_rows"`
	DeltaRows            int        `db:"delta_rows" json:"delta_rows"`
	AnomalyCount         int        `db:"anomaly_count" json:"anomaly_count"`
	ErrorMessage         string     `db:"error_message" json:"error_message,omitempty"`
	ExecutionTimeSeconds float64    `db:"execution_time_seconds" json:"execution_time_seconds"`
}

// RunCounts счетчики строк по этапам запуска
type RunCounts struct {
	BronzeRows   int
	SilverRows   int
	ValidRows    int
	RejectedRows int
	DeltaRows    int
	AnomalyCount int
}

// ETLLogRepository представляет репозиторий для работы с логами ETL
type ETLLogRepository interface {
	// CreateLogEntry создает новую запись о запуске ETL
	CreateLogEntry(runUUID string, startTime time.Time) (int, error)

	// UpdateLogEntrySuccess обновляет запись при успешном завершении ETL
	UpdateLogEntrySuccess(id int, endTime time.Time, counts RunCounts) error

	// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
	UpdateLogEntryFailure(id int, endTime time.Time, errorMessage string) error

	// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL
	GetLastSuccessfulRun() (*ETLRunLog, error)

	// GetRecentRuns получает последние запуски ETL
	GetRecentRuns(limit int) ([]ETLRunLog, error)
}

// ETLStateMonitor предоставляет информацию о текущем состоянии ETL процесса
type ETLStateMonitor struct {
	LastSuccessfulRun       *ETLRunLog `json:"last_successful_run"`
	LastFailedRun           *ETLRunLog `json:"last_failed_run,omitempty"`
	TotalSuccessfulRuns     int        `json:"total_successful_runs"`
	TotalFailedRuns         int        `json:"total_failed_runs"`
	AvgExecutionTimeSeconds float64    `json:"avg_execution_time_seconds"`
}
