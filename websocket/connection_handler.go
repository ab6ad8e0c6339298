package websocket

import (
	"net/http"
)

// HandleConnections обрабатывает WebSocket-соединения потока аномалий
func (manager *Manager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	// Устанавливаем WebSocket-соединение
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		manager.logger.Error("Ошибка при установке WebSocket-соединения: %v", err)
		return
	}

	// Создаем нового клиента
	client := &Client{
		Socket: conn,
		Send:   make(chan []byte, sendBufferSize),
	}

	// Регистрируем клиента в менеджере
	select {
	case manager.Register <- client:
	case <-manager.done:
		conn.Close()
		return
	}

	// Запускаем горутины для чтения и отправки сообщений
	go client.writePump(manager)
	go client.readPump(manager)
}
