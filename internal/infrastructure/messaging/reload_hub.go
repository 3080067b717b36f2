package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ReloadMessage tells browsers which pages changed.
type ReloadMessage struct {
	Type      string    `json:"type"`
	Slugs     []string  `json:"slugs,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReloadClient is one connected live-reload browser.
type ReloadClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// NewReloadClient wraps an upgraded websocket connection.
func NewReloadClient(conn *websocket.Conn) *ReloadClient {
	return &ReloadClient{Conn: conn, Send: make(chan []byte, 16)}
}

// ReloadHub manages the connected live-reload clients. Registration and
// broadcast are serialised through Run.
type ReloadHub struct {
	clients    map[*ReloadClient]bool
	register   chan *ReloadClient
	unregister chan *ReloadClient
	broadcast  chan []byte
	done       chan struct{}
	logger     *logging.ChanneledLogger
}

// NewReloadHub creates a new hub. Run must be started before clients register.
func NewReloadHub(logger *logging.ChanneledLogger) *ReloadHub {
	return &ReloadHub{
		clients:    make(map[*ReloadClient]bool),
		register:   make(chan *ReloadClient),
		unregister: make(chan *ReloadClient),
		broadcast:  make(chan []byte, 8),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing every
// client.
func (h *ReloadHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.SSE().Debug("Reload client registered", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.logger.SSE().Debug("Reload client unregistered", "clients", len(h.clients))

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					delete(h.clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// Register queues a client for registration.
func (h *ReloadHub) Register(client *ReloadClient) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister queues a client for removal.
func (h *ReloadHub) Unregister(client *ReloadClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends msg to every client.
func (h *ReloadHub) Broadcast(msg ReloadMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	message, err := json.Marshal(msg)
	if err != nil {
		h.logger.SSE().Error("Failed to encode reload message", "error", err.Error())
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// Serve pumps messages to client until it disconnects. It blocks.
func (h *ReloadHub) Serve(client *ReloadClient) {
	h.Register(client)
	go h.readPump(client)
	h.writePump(client)
}

// readPump discards inbound frames and unregisters the client on close.
func (h *ReloadHub) readPump(client *ReloadClient) {
	defer func() {
		h.Unregister(client)
		client.Conn.Close()
	}()
	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ReloadHub) writePump(client *ReloadClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
