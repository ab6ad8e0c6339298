package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
	"github.com/LilVoxy/finance_etl/middleware"
	"github.com/LilVoxy/finance_etl/websocket"
)

// RunLogReader журнал запусков, доступный серверу отчетов
type RunLogReader interface {
	GetRecentRuns(limit int) ([]models.ETLRunLog, error)
	GetETLStateMonitor() (*models.ETLStateMonitor, error)
}

// Dependencies зависимости обработчиков
type Dependencies struct {
	Paths       config.PathsConfig
	RunLog      RunLogReader
	Registry    *prometheus.Registry
	Streams     *websocket.Manager
	RateLimiter *middleware.RateLimiter
	Logger      *utils.ETLLogger
}

// SetupRoutes настраивает все маршруты API и WebSocket
func SetupRoutes(router *mux.Router, deps Dependencies) {
	if deps.Logger == nil {
		deps.Logger = utils.NewNopLogger()
	}

	// Применяем CORS middleware
	router.Use(middleware.CORSMiddleware)
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Handler)
	}

	// WebSocket поток отчетов об аномалиях
	if deps.Streams != nil {
		router.HandleFunc("/ws/alerts", deps.Streams.HandleConnections)
		router.HandleFunc("/api/stream/status", deps.Streams.HandleStatus).Methods("GET", "OPTIONS")
	}

	// API слоя Gold
	router.HandleFunc("/api/gold/{table}", GetGoldTableHandler(deps.Paths.GoldDir, deps.Logger)).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/kpi", GetKPIHandler(deps.Paths.GoldDir, deps.Logger)).Methods("GET", "OPTIONS")

	// API отчетов
	router.HandleFunc("/api/alerts/latest", GetLatestAlertsHandler(deps.Paths.AlertsDir, deps.Logger)).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/quality/latest", GetLatestQualityHandler(deps.Paths.ReportsDir, deps.Paths.QuarantineDir, deps.Logger)).Methods("GET", "OPTIONS")
	if deps.RunLog != nil {
		router.HandleFunc("/api/runs", GetRunsHandler(deps.RunLog, deps.Logger)).Methods("GET", "OPTIONS")
	}

	// Метрики Prometheus
	if deps.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// writeJSON кодирует ответ; ошибка кодирования только логируется, заголовки уже отправлены
func writeJSON(w http.ResponseWriter, logger *utils.ETLLogger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Ошибка при кодировании JSON: %v", err)
	}
}
