// Рассылка событий редактора по вебсокетам: состояние синхронизации и результаты автосохранения.
//
// Основные возможности:
//   - Несколько подключений к одной сессии редактирования.
//   - Широковещательная отправка всем подключениям.
//   - Пинг для поддержания активных соединений.
package notifications

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gofrs/uuid"
)

const (
	pingPeriod = time.Second * 20
	timeout    = time.Minute
)

const (
	TypeSyncStatus = "sync_status"
	TypeAutosave   = "autosave"
	TypeSettings   = "settings"
)

type Message struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Hub держит подключения по ключу сессии. Пустой ключ означает подписку на все сессии.
type Hub struct {
	sessions map[string]map[uuid.UUID]*websocket.Conn
	mutex    sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[uuid.UUID]*websocket.Conn),
	}
}

func (h *Hub) Handle(sessionID string, w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Open websocket connection", "err", err)
		return
	}
	defer c.CloseNow()

	conID := uuid.Must(uuid.NewV4())
	h.add(sessionID, conID, c)

	go h.pingLoop(sessionID, conID, c)

	ctx := c.CloseRead(req.Context())
	<-ctx.Done()

	h.remove(sessionID, conID)
	c.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) add(sessionID string, conID uuid.UUID, c *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	cons, ok := h.sessions[sessionID]
	if !ok {
		cons = make(map[uuid.UUID]*websocket.Conn)
		h.sessions[sessionID] = cons
	}
	cons[conID] = c
}

func (h *Hub) remove(sessionID string, conID uuid.UUID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.sessions[sessionID], conID)
	if len(h.sessions[sessionID]) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Connections число подключений к сессии.
func (h *Hub) Connections(sessionID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions[sessionID])
}

// Send отправляет сообщение подписчикам сессии и подписчикам всех сессий.
func (h *Hub) Send(sessionID, msgType string, data any) {
	msg := Message{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	h.mutex.RLock()
	var targets []*websocket.Conn
	for _, c := range h.sessions[sessionID] {
		targets = append(targets, c)
	}
	if sessionID != "" {
		for _, c := range h.sessions[""] {
			targets = append(targets, c)
		}
	}
	h.mutex.RUnlock()

	for _, conn := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			slog.Error("Write message to websocket", "sessionId", sessionID, "type", msgType, "err", err)
		}
		cancel()
	}
}

// Broadcast отправляет сообщение всем подключениям.
func (h *Hub) Broadcast(msgType string, data any) {
	msg := Message{
		Type:      msgType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	h.mutex.RLock()
	var targets []*websocket.Conn
	for _, cons := range h.sessions {
		for _, c := range cons {
			targets = append(targets, c)
		}
	}
	h.mutex.RUnlock()

	for _, conn := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			slog.Error("Broadcast message to websocket", "type", msgType, "err", err)
		}
		cancel()
	}
}

func (h *Hub) pingLoop(sessionID string, conID uuid.UUID, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := conn.Ping(ctx)
		cancel()
		if err != nil {
			slog.Debug("Ping to websocket failed", "sessionId", sessionID, "err", err)
			h.remove(sessionID, conID)
			conn.Close(websocket.StatusNormalClosure, "Ping failed, connection closed")
			return
		}
	}
}
