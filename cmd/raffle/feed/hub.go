package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/models"
)

// ErrHubStopped is returned when delivering after Run has returned
var ErrHubStopped = errors.New("feed hub stopped")

// Hub fans assignment events out to the websocket connections of each giver
type Hub struct {
	// contact -> connected clients
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}

	log *logger.Logger
}

// Message is one payload addressed to every connection of a contact
type Message struct {
	Contact string
	Data    []byte
}

// NewHub creates a hub; call Run before serving connections
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// closes every connection
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("feed hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.log.Info("feed hub stopped")
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

// Deliver queues event for the giver's connections. It matches the
// notifier's delivery signature.
func (h *Hub) Deliver(ctx context.Context, event models.AssignmentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode assignment event: %w", err)
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- &Message{Contact: event.GiverContact, Data: data}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectionCount returns the number of open connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, set := range h.clients {
		count += len(set)
	}
	return count
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.contact]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.contact] = set
	}
	set[client] = struct{}{}
	h.log.Debug("feed client registered", "contact", client.contact, "connections", len(set))
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(client)
}

// drop closes the client's send channel once; callers hold mu
func (h *Hub) drop(client *Client) {
	set := h.clients[client.contact]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.contact)
	}
	h.log.Debug("feed client unregistered", "contact", client.contact)
}

func (h *Hub) send(message *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[message.Contact] {
		select {
		case client.send <- message.Data:
		default:
			h.log.Warn("feed client too slow, closing connection", "contact", client.contact)
			h.drop(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.clients {
		for client := range set {
			h.drop(client)
		}
	}
}
