package routes

import (
	"net/http"
	"strconv"

	"github.com/LilVoxy/finance_etl/ETL/anomaly"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/quality"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// DefaultRunsLimit число запусков в ответе по умолчанию
const DefaultRunsLimit = 20

// RunsResponse структура ответа API для журнала запусков
type RunsResponse struct {
	Runs    []models.ETLRunLog      `json:"runs"`
	Monitor *models.ETLStateMonitor `json:"monitor"`
}

// GetLatestAlertsHandler отдает самый свежий отчет об аномалиях
func GetLatestAlertsHandler(alertsDir string, logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, _, err := anomaly.LatestAlertReport(alertsDir)
		if err != nil {
			logger.Error("Ошибка при чтении отчета об аномалиях: %v", err)
			http.Error(w, "Ошибка при чтении отчета об аномалиях", http.StatusInternalServerError)
			return
		}
		if report == nil {
			http.Error(w, "Отчетов об аномалиях нет", http.StatusNotFound)
			return
		}
		writeJSON(w, logger, report)
	}
}

// GetLatestQualityHandler отдает последний отчет о качестве Bronze
func GetLatestQualityHandler(reportsDir, quarantineDir string, logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := quality.LatestReport(reportsDir, quarantineDir)
		if err != nil {
			logger.Error("Ошибка при чтении отчета о качестве: %v", err)
			http.Error(w, "Ошибка при чтении отчета о качестве", http.StatusInternalServerError)
			return
		}
		if report == nil {
			http.Error(w, "Отчетов о качестве нет", http.StatusNotFound)
			return
		}
		writeJSON(w, logger, report)
	}
}

// GetRunsHandler отдает последние запуски и сводку состояния ETL
func GetRunsHandler(repo RunLogReader, logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := DefaultRunsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "Неверный формат параметра limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		runs, err := repo.GetRecentRuns(limit)
		if err != nil {
			logger.Error("Ошибка при получении журнала запусков: %v", err)
			http.Error(w, "Ошибка при получении журнала запусков", http.StatusInternalServerError)
			return
		}
		monitor, err := repo.GetETLStateMonitor()
		if err != nil {
			logger.Error("Ошибка при получении состояния ETL: %v", err)
			http.Error(w, "Ошибка при получении состояния ETL", http.StatusInternalServerError)
			return
		}

		if runs == nil {
			runs = []models.ETLRunLog{}
		}
		writeJSON(w, logger, RunsResponse{Runs: runs, Monitor: monitor})
	}
}
