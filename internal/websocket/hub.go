package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"todo-api/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client merepresentasikan klien WebSocket milik satu user.
type Client struct {
	UserID string
	Conn   Conn
	Mu     sync.Mutex
}

// Event dikirim ke semua koneksi milik user setelah task berubah.
type Event struct {
	Event  string `json:"event"`
	TaskID string `json:"taskId"`
}

const (
	EventTaskAdded   = "task.added"
	EventTaskRemoved = "task.removed"
	EventTaskToggled = "task.toggled"
)

type message struct {
	userID  string
	payload []byte
}

// Hub mengelola koneksi WebSocket per user.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run menjalankan loop Hub sampai ctx selesai.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					_ = client.Conn.Close()
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return
		case client := <-h.register:
			set, ok := h.clients[client.UserID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.UserID] = set
			}
			set[client] = true
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			for client := range h.clients[msg.userID] {
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, msg.payload)
				client.Mu.Unlock()
				if err != nil {
					h.remove(client)
				}
			}
		}
	}
}

// Join registers client. It returns false once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	_ = client.Conn.Close()
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
}

// Publish queues ev for userID's connections. It never blocks: when the
// queue is full the event is dropped.
func (h *Hub) Publish(userID string, ev Event) {
	if h == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message{userID: userID, payload: payload}:
	default:
		logger.SystemLogger.Warn("Task event dropped, hub queue full", zap.String("user_id", userID))
	}
}
