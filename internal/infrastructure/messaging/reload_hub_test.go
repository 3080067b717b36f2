package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtdb/xtdocs/internal/infrastructure/observability/logging"
)

func TestReloadHubBroadcast(t *testing.T) {
	hub := NewReloadHub(logging.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(NewReloadClient(conn))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// registration is asynchronous; keep broadcasting until one arrives
	received := make(chan ReloadMessage, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ReloadMessage
		if json.Unmarshal(data, &msg) == nil {
			received <- msg
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		hub.Broadcast(ReloadMessage{Type: "reload", Slugs: []string{"intro"}})
		select {
		case msg := <-received:
			assert.Equal(t, "reload", msg.Type)
			assert.Equal(t, []string{"intro"}, msg.Slugs)
			return
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("no reload message received")
		}
	}
}

func TestReloadHubStopsWithContext(t *testing.T) {
	hub := NewReloadHub(logging.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	// calls after shutdown return instead of blocking
	hub.Broadcast(ReloadMessage{Type: "reload"})
	client := &ReloadClient{Send: make(chan []byte, 1)}
	hub.Register(client)
	_, open := <-client.Send
	assert.False(t, open)
}
