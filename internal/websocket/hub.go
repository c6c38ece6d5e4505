package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// Client is one dashboard connection. An employee may hold several.
type Client struct {
	Hub        *Hub
	Conn       *Conn
	EmployeeID uint
	Send       chan []byte
}

// Hub fans checkout events out to every connected employee session.
type Hub struct {
	// EmployeeID -> sessions
	clients map[uint][]*Client

	register  chan *Client
	broadcast chan []byte

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[uint][]*Client),
		register:  make(chan *Client, 64),
		broadcast: make(chan []byte, 256),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes every session.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.EmployeeID] = append(h.clients[client.EmployeeID], client)
			sessions := len(h.clients[client.EmployeeID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"employee_id":    client.EmployeeID,
				"total_sessions": sessions,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			var stalled []*Client
			for _, sessions := range h.clients {
				for _, client := range sessions {
					select {
					case client.Send <- message:
					default:
						stalled = append(stalled, client)
					}
				}
			}
			h.mu.RUnlock()

			for _, client := range stalled {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"employee_id": client.EmployeeID,
				})
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.clients[client.EmployeeID]
	if !ok {
		return
	}
	kept := make([]*Client, 0, len(sessions))
	found := false
	for _, c := range sessions {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}
	if len(kept) == 0 {
		delete(h.clients, client.EmployeeID)
	} else {
		h.clients[client.EmployeeID] = kept
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"employee_id":        client.EmployeeID,
		"remaining_sessions": len(kept),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sessions := range h.clients {
		for _, client := range sessions {
			close(client.Send)
		}
		delete(h.clients, id)
	}
}

// PublishCheckoutEvent queues the event for broadcast. Events are dropped when the queue is full.
func (h *Hub) PublishCheckoutEvent(event model.CheckoutEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal checkout event", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"type":        event.Type,
			"checkout_id": event.CheckoutID,
		})
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister is safe to call after Run has returned.
func (h *Hub) Unregister(client *Client) {
	h.remove(client)
}

// ConnectedEmployees reports how many distinct employees have an open session.
func (h *Hub) ConnectedEmployees() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
