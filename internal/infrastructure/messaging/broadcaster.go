// Package messaging provides the SSE broadcaster for playground lifecycle
// events and the websocket hub used for live reload.
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

// ErrTooManyClients is returned by AddClient when the connection limit is reached.
var ErrTooManyClients = errors.New("SSE connection limit reached")

// PlaygroundEvent is one coordinator lifecycle event of a page session.
type PlaygroundEvent struct {
	SessionID string    `json:"sessionId"`
	WidgetID  string    `json:"widgetId"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// SSEBroadcaster manages session-scoped SSE connections.
type SSEBroadcaster struct {
	sessions map[string][]chan string // sessionId -> []channels
	total    int
	max      int
	mu       sync.Mutex
	logger   *logging.ChanneledLogger
}

// NewSSEBroadcaster creates a broadcaster accepting at most maxClients
// concurrent connections. A non-positive limit means no limit.
func NewSSEBroadcaster(maxClients int, logger *logging.ChanneledLogger) *SSEBroadcaster {
	return &SSEBroadcaster{
		sessions: make(map[string][]chan string),
		max:      maxClients,
		logger:   logger,
	}
}

// AddClient registers a new SSE client for sessionID.
func (b *SSEBroadcaster) AddClient(sessionID string) (chan string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.total >= b.max {
		b.logger.SSE().Warn("SSE connection limit reached", "sessionId", sessionID, "maxConnections", b.max)
		return nil, ErrTooManyClients
	}

	ch := make(chan string, 100)
	b.sessions[sessionID] = append(b.sessions[sessionID], ch)
	b.total++

	b.logger.SSE().Debug("SSE client registered", "sessionId", sessionID, "totalConnections", b.total)
	return ch, nil
}

// RemoveClient unregisters ch and closes it.
func (b *SSEBroadcaster) RemoveClient(ch chan string, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, exists := b.sessions[sessionID]
	if !exists {
		return
	}
	i := slices.Index(clients, ch)
	if i < 0 {
		return
	}
	clients = slices.Delete(clients, i, i+1)
	if len(clients) == 0 {
		delete(b.sessions, sessionID)
	} else {
		b.sessions[sessionID] = clients
	}
	b.total--
	close(ch)

	b.logger.SSE().Debug("SSE client unregistered", "sessionId", sessionID, "totalConnections", b.total)
}

// SessionConnectionCount returns the number of clients listening to sessionID.
func (b *SSEBroadcaster) SessionConnectionCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions[sessionID])
}

// Publish sends event to every client of its session. Slow clients drop
// messages rather than block the page session.
func (b *SSEBroadcaster) Publish(event PlaygroundEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	message, err := FormatSSE(event.Type, event)
	if err != nil {
		b.logger.SSE().Error("Failed to encode playground event", "error", err.Error(), "sessionId", event.SessionID)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	clients := b.sessions[event.SessionID]
	if len(clients) == 0 {
		return
	}
	b.logger.SSE().Debug("Broadcasting to session",
		"message", strings.ReplaceAll(message, "\n", "\\n"), "sessionId", event.SessionID)
	for _, ch := range clients {
		select {
		case ch <- message:
		default:
			b.logger.SSE().Warn("SSE channel full, message dropped", "sessionId", event.SessionID)
		}
	}
}

// FormatSSE renders one server-sent event frame with a JSON data line.
func FormatSSE(event string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if event == "" {
		return fmt.Sprintf("data: %s\n\n", payload), nil
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload), nil
}
