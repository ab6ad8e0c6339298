package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// Создание нового менеджера WebSocket-соединений
func NewManager(logger *utils.ETLLogger) *Manager {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Manager{
		Broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[*Client]bool),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run запускает работу менеджера до отмены контекста
func (manager *Manager) Run(ctx context.Context) {
	defer func() {
		for client := range manager.Clients {
			delete(manager.Clients, client)
			close(client.Send)
		}
		manager.connected.Store(0)
		close(manager.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-manager.Register:
			manager.Clients[client] = true
			manager.connected.Store(int64(len(manager.Clients)))
			manager.logger.Info("Клиент %s подключился к потоку аномалий", client.Socket.RemoteAddr())

			// Новый клиент сразу получает последний отчет
			if latest := manager.Latest(); latest != nil {
				client.Send <- latest
			}

		case client := <-manager.Unregister:
			if _, ok := manager.Clients[client]; ok {
				delete(manager.Clients, client)
				close(client.Send)
				manager.connected.Store(int64(len(manager.Clients)))
				manager.logger.Info("Клиент %s отключился", client.Socket.RemoteAddr())
			}

		case message := <-manager.Broadcast:
			// Рассылаем сообщение всем подключенным клиентам
			manager.broadcast(message)
		}
	}
}

// broadcast отправляет сообщение всем подключенным клиентам
func (manager *Manager) broadcast(message []byte) {
	for client := range manager.Clients {
		select {
		case client.Send <- message:
		default:
			// Медленный клиент отключается
			close(client.Send)
			delete(manager.Clients, client)
		}
	}
	manager.connected.Store(int64(len(manager.Clients)))
}

// PublishReport рассылает отчет об аномалиях и запоминает его для новых клиентов
func (manager *Manager) PublishReport(path string, report *models.AlertReport) error {
	data, err := json.Marshal(Message{
		Type:      MessageAlertReport,
		Path:      path,
		Report:    report,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации отчета: %w", err)
	}

	manager.latestMutex.Lock()
	manager.latest = data
	manager.latestPath = path
	manager.latestMutex.Unlock()

	select {
	case manager.Broadcast <- data:
	case <-manager.done:
	}
	return nil
}

// Latest последнее разосланное сообщение или nil
func (manager *Manager) Latest() []byte {
	manager.latestMutex.RLock()
	defer manager.latestMutex.RUnlock()
	return manager.latest
}

// LatestPath путь последнего разосланного отчета
func (manager *Manager) LatestPath() string {
	manager.latestMutex.RLock()
	defer manager.latestMutex.RUnlock()
	return manager.latestPath
}

// Connected число подключенных клиентов
func (manager *Manager) Connected() int {
	return int(manager.connected.Load())
}
