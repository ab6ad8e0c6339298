package websocket

import (
	"time"
)

// Константы для WebSocket-соединения
const (
	// Время ожидания записи сообщения клиенту
	writeWait = 10 * time.Second

	// Время ожидания сообщения от клиента
	pongWait = 60 * time.Second

	// Период отправки пинг-сообщений
	pingPeriod = (pongWait * 9) / 10

	// Клиент присылает только служебные ping
	maxMessageSize = 512

	// Буфер исходящих сообщений клиента
	sendBufferSize = 16
)

// Типы сообщений потока
const (
	MessageAlertReport = "alert_report"
	MessagePing        = "ping"
	MessagePong        = "pong"
)
