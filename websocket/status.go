package websocket

import (
	"encoding/json"
	"net/http"
)

// StreamStatus состояние потока аномалий
type StreamStatus struct {
	Connected  int    `json:"connected_clients"`
	LastReport string `json:"last_report,omitempty"`
}

// HandleStatus отдает число подключенных клиентов и последний разосланный отчет
func (manager *Manager) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := StreamStatus{
		Connected:  manager.Connected(),
		LastReport: manager.LatestPath(),
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		manager.logger.Error("Ошибка при кодировании статуса: %v", err)
	}
}
