package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/recetteplus/recette-backend/pkg/logger"
)

const (
	// inbound messages allowed per client per second
	maxMessagesPerSecond = 10

	sendBufferSize = 64
)

// ClientMessage is what a tracker may send; only keep-alives are understood.
type ClientMessage struct {
	Type string `json:"type"` // ping
}

// Client is one websocket session watching one order.
type Client struct {
	Hub     *Hub
	Conn    *Conn
	UserID  uint
	OrderID uint
	Send    chan []byte

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

func NewClient(hub *Hub, conn *Conn, userID, orderID uint) *Client {
	return &Client{
		Hub:     hub,
		Conn:    conn,
		UserID:  userID,
		OrderID: orderID,
		Send:    make(chan []byte, sendBufferSize),
	}
}

type roomMessage struct {
	orderID uint
	data    []byte
}

type sizeQuery struct {
	orderID uint
	reply   chan int
}

// Hub fans tracking events out to the sessions watching each order. All maps
// are owned by the Run goroutine; everything else talks to it over channels.
type Hub struct {
	rooms map[uint]map[*Client]bool // order ID -> sessions

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
	direct     chan directMessage
	sizes      chan sizeQuery
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan roomMessage, 1024),
		direct:     make(chan directMessage, 256),
		sizes:      make(chan sizeQuery),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for client := range room {
					close(client.Send)
				}
			}
			h.rooms = make(map[uint]map[*Client]bool)
			logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			room, ok := h.rooms[client.OrderID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.OrderID] = room
			}
			room[client] = true
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":  client.UserID,
				"order_id": client.OrderID,
				"watchers": len(room),
			})

		case client := <-h.unregister:
			if h.remove(client) {
				logger.Info("WebSocket client unregistered", map[string]interface{}{
					"user_id":  client.UserID,
					"order_id": client.OrderID,
				})
			}

		case msg := <-h.broadcast:
			for client := range h.rooms[msg.orderID] {
				select {
				case client.Send <- msg.data:
				default:
					// a watcher that cannot keep up is dropped; it can reconnect and re-poll
					h.remove(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id":  client.UserID,
						"order_id": client.OrderID,
					})
				}
			}

		case msg := <-h.direct:
			if h.rooms[msg.client.OrderID][msg.client] {
				select {
				case msg.client.Send <- msg.data:
				default:
				}
			}

		case q := <-h.sizes:
			q.reply <- len(h.rooms[q.orderID])
		}
	}
}

// remove must only be called from Run.
func (h *Hub) remove(client *Client) bool {
	room, ok := h.rooms[client.OrderID]
	if !ok || !room[client] {
		return false
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.OrderID)
	}
	close(client.Send)
	return true
}

// SendToRoom queues message for every session watching orderID. Delivery is
// best effort: a full broadcast queue drops the message.
func (h *Hub) SendToRoom(orderID uint, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal message", err, map[string]interface{}{
			"order_id": orderID,
		})
		return err
	}

	select {
	case h.broadcast <- roomMessage{orderID: orderID, data: data}:
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"order_id": orderID,
		})
	}
	return nil
}

// Register adds client to its order's room. After the hub has stopped the
// client's Send channel is closed right away.
func (h *Hub) Register(client *Client) {
	select {
	case <-h.done:
		close(client.Send)
		return
	default:
	}

	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// RoomSize reports how many sessions watch orderID.
func (h *Hub) RoomSize(orderID uint) int {
	q := sizeQuery{orderID: orderID, reply: make(chan int, 1)}
	select {
	case h.sizes <- q:
		return <-q.reply
	case <-h.done:
		return 0
	}
}

// HandleClientMessage answers keep-alives and ignores anything else.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		h.reply(client, map[string]interface{}{"type": "pong", "at": now.UTC()})
	}
}

type directMessage struct {
	client *Client
	data   []byte
}

// reply goes through Run because only Run knows whether Send is still open.
func (h *Hub) reply(client *Client, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case h.direct <- directMessage{client: client, data: data}:
	default:
	}
}
