package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// readPump обрабатывает чтение сообщений от клиента
func (c *Client) readPump(manager *Manager) {
	defer func() {
		// Канал Send мог быть закрыт менеджером во время ответа на ping
		if r := recover(); r != nil {
			manager.logger.Debug("Паника при чтении сообщений клиента: %v", r)
		}

		// Отправляем сигнал отключения
		select {
		case manager.Unregister <- c:
		case <-manager.done:
		}
		c.Socket.Close()
	}()

	// Устанавливаем параметры подключения
	c.Socket.SetReadLimit(maxMessageSize)
	c.Socket.SetReadDeadline(time.Now().Add(pongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				manager.logger.Warn("Ошибка чтения WebSocket: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			manager.logger.Debug("Ошибка декодирования сообщения: %v", err)
			continue
		}

		if msg.Type == MessagePing {
			if pong, err := json.Marshal(Message{Type: MessagePong, Timestamp: time.Now()}); err == nil {
				// Ответ через writePump; при переполненном буфере пропускаем
				select {
				case c.Send <- pong:
				default:
				}
			}
		}
	}
}
