package websocket

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// Структура сообщения для обмена через WebSocket
type Message struct {
	Type      string              `json:"type"`
	Path      string              `json:"path,omitempty"`
	Report    *models.AlertReport `json:"report,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Клиент WebSocket
type Client struct {
	Socket *websocket.Conn
	Send   chan []byte
}

// Менеджер WebSocket-соединений
type Manager struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client

	logger    *utils.ETLLogger
	done      chan struct{}
	connected atomic.Int64

	// Последнее разосланное сообщение для новых клиентов
	latestMutex sync.RWMutex
	latest      []byte
	latestPath  string
}

// Конфигурация WebSocket-соединения
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Поток только на чтение, источник не ограничиваем
	},
}
