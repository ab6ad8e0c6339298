package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/finance_etl/ETL/anomaly"
	"github.com/LilVoxy/finance_etl/ETL/models"
)

func startManager(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewManager(nil)
	go manager.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(manager.HandleConnections))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return manager, server
}

func dial(t *testing.T, server *httptest.Server) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/alerts"
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeReport(t *testing.T, dir string, generated time.Time, severities ...string) string {
	t.Helper()
	var anomalies []models.Anomaly
	for i, s := range severities {
		anomalies = append(anomalies, models.Anomaly{ID: string(rune('a' + i)), Severity: s})
	}
	path, err := anomaly.WriteAlertReport(dir, anomaly.BuildAlertReport(anomalies, generated))
	require.NoError(t, err)
	return path
}

func TestAlertFeedPushesNewReports(t *testing.T) {
	manager, server := startManager(t)
	dir := t.TempDir()
	feed := NewAlertFeed(manager, dir, time.Minute, nil)

	conn := dial(t, server)

	// Пустой каталог ничего не рассылает
	sent, err := feed.Poll()
	require.NoError(t, err)
	assert.False(t, sent)

	path := writeReport(t, dir, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), models.SeverityCritical, models.SeverityHigh)
	sent, err = feed.Poll()
	require.NoError(t, err)
	assert.True(t, sent)

	msg := readMessage(t, conn)
	assert.Equal(t, MessageAlertReport, msg.Type)
	assert.Equal(t, path, msg.Path)
	require.NotNil(t, msg.Report)
	assert.Equal(t, 2, msg.Report.Total)
	assert.Equal(t, 1, msg.Report.Critical)

	// Тот же отчет повторно не рассылается
	sent, err = feed.Poll()
	require.NoError(t, err)
	assert.False(t, sent)

	// Новый клиент сразу получает последний отчет
	late := dial(t, server)
	assert.Equal(t, path, readMessage(t, late).Path)
	assert.Equal(t, path, manager.LatestPath())
}

func TestPingPong(t *testing.T) {
	_, server := startManager(t)
	conn := dial(t, server)

	require.NoError(t, conn.WriteJSON(Message{Type: MessagePing}))
	assert.Equal(t, MessagePong, readMessage(t, conn).Type)
}
