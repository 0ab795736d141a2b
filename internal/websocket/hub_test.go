package websocket

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
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func waitForRoomSize(t *testing.T, hub *Hub, orderID uint, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.RoomSize(orderID) == want
	}, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-client.Send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHub_SendToRoom(t *testing.T) {
	hub := startHub(t)

	watcher := NewClient(hub, nil, 1, 10)
	other := NewClient(hub, nil, 2, 20)
	hub.Register(watcher)
	hub.Register(other)
	waitForRoomSize(t, hub, 10, 1)
	waitForRoomSize(t, hub, 20, 1)

	require.NoError(t, hub.SendToRoom(10, map[string]interface{}{"type": "tracking", "order_id": 10}))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(receive(t, watcher), &payload))
	assert.Equal(t, "tracking", payload["type"])
	assert.EqualValues(t, 10, payload["order_id"])

	select {
	case msg := <-other.Send:
		t.Fatalf("unexpected message for another order: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil, 1, 10)
	hub.Register(client)
	waitForRoomSize(t, hub, 10, 1)

	hub.Unregister(client)
	waitForRoomSize(t, hub, 10, 0)

	_, ok := <-client.Send
	assert.False(t, ok)

	// a second unregister must not close Send again
	hub.Unregister(client)
	assert.Equal(t, 0, hub.RoomSize(10))
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := NewClient(hub, nil, 1, 10)
	hub.Register(slow)
	waitForRoomSize(t, hub, 10, 1)

	for i := 0; i <= sendBufferSize; i++ {
		require.NoError(t, hub.SendToRoom(10, map[string]int{"seq": i}))
	}

	waitForRoomSize(t, hub, 10, 0)
}

func TestHub_PingGetsPong(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil, 1, 10)
	hub.Register(client)
	waitForRoomSize(t, hub, 10, 1)

	hub.HandleClientMessage(client, []byte(`{"type":"ping"}`))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(receive(t, client), &payload))
	assert.Equal(t, "pong", payload["type"])
}

func TestHub_ClientRateLimit(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil, 1, 10)
	hub.Register(client)
	waitForRoomSize(t, hub, 10, 1)

	for i := 0; i < maxMessagesPerSecond+5; i++ {
		hub.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	}

	require.Eventually(t, func() bool {
		return len(client.Send) == maxMessagesPerSecond
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, maxMessagesPerSecond, len(client.Send))
}

func TestHub_StopClosesSessions(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := NewClient(hub, nil, 1, 10)
	hub.Register(client)
	waitForRoomSize(t, hub, 10, 1)

	cancel()

	select {
	case _, ok := <-client.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("session not closed on stop")
	}
	assert.Equal(t, 0, hub.RoomSize(10))

	late := NewClient(hub, nil, 2, 10)
	hub.Register(late)
	_, ok := <-late.Send
	assert.False(t, ok)
}

func TestServe_DeliversOverWebSocket(t *testing.T) {
	hub := startHub(t)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, ws, 7, 42)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	waitForRoomSize(t, hub, 42, 1)
	require.NoError(t, hub.SendToRoom(42, map[string]string{"type": "tracking"}))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tracking"}`, string(data))

	ws.Close()
	waitForRoomSize(t, hub, 42, 0)
}
