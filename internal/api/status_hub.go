package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shaiso/dockflow/internal/mq"
)

const (
	wsBufferSize   = 4096
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadLimit    = 512

	// clientQueue — сколько событий клиент может отставать до отключения.
	clientQueue = 64
)

// Браузерный редактор обслуживается с другого origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub рассылает события node.status подключённым WebSocket клиентам.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

type client struct {
	send   chan []byte
	nodeID uuid.UUID // uuid.Nil — все узлы
}

// NewHub создаёт Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Clients возвращает количество подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleDelivery — mq.Handler для временной очереди на dockflow.status.
func (h *Hub) HandleDelivery(_ context.Context, d *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.NodeStatusPayload](&d.Envelope)
	if err != nil {
		return err
	}
	h.Broadcast(payload)
	return nil
}

// Broadcast отправляет событие клиентам, подписанным на его узел.
// Отстающие клиенты отключаются.
func (h *Hub) Broadcast(event mq.NodeStatusPayload) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode status event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.nodeID != uuid.Nil && c.nodeID != event.NodeID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("status client too slow, disconnecting")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// StatusStream отдаёт статусы узлов по WebSocket.
// GET /api/v1/status/ws?node_id=...
func (h *Handler) StatusStream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		Unavailable(w, "status stream is not configured")
		return
	}

	c := &client{send: make(chan []byte, clientQueue)}
	if v := r.URL.Query().Get("node_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			BadRequest(w, "invalid node_id")
			return
		}
		c.nodeID = id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.hub.register(c)
	h.logger.Info("status stream connected", "node_id", c.nodeID, "clients", h.hub.Clients())

	go h.hub.readLoop(conn, c)
	h.hub.writeLoop(conn, c)
}

// readLoop читает только control frames; закрытие соединения снимает подписку.
func (h *Hub) readLoop(conn *websocket.Conn, c *client) {
	defer h.unregister(c)

	conn.SetReadLimit(wsReadLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}
