package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AllCommunities is the topic of clients that follow every opportunity.
const AllCommunities int64 = 0

// SeatUpdate is pushed to clients whenever an opportunity's sign-up count changes.
type SeatUpdate struct {
	Type           string    `json:"type"`
	OpportunityID  int64     `json:"opportunityId"`
	CommunityID    int64     `json:"communityId"`
	CurrentSignUps int       `json:"currentSignUps"`
	MaxSignUps     int       `json:"maxSignUps"`
	Timestamp      time.Time `json:"timestamp"`
}

// MessageTypeSeats is the Type of a SeatUpdate.
const MessageTypeSeats = "opportunity.seats"

// Hub maintains the set of active clients and broadcasts seat updates to them
type Hub struct {
	// Registered clients by community; AllCommunities holds the unfiltered ones
	clients map[int64]map[*Client]bool

	broadcast  chan *SeatUpdate
	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns
	done chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan *SeatUpdate, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[int64]map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case update := <-h.broadcast:
			h.broadcastUpdate(update)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic := client.communityID
	if _, ok := h.clients[topic]; !ok {
		h.clients[topic] = make(map[*Client]bool)
	}
	h.clients[topic][client] = true

	h.logger.Info().
		Int64("communityID", topic).
		Int64("userID", client.userID).
		Msg("Client registered")
}

// attach hands a new client to Run. It fails once the hub has stopped.
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	topic := client.communityID
	clients, ok := h.clients[topic]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, topic)
	}
	h.logger.Info().
		Int64("communityID", topic).
		Int64("userID", client.userID).
		Msg("Client unregistered")
}

// broadcastUpdate sends update to the community's clients and to the
// unfiltered ones. Clients whose buffer is full are dropped.
func (h *Hub) broadcastUpdate(update *SeatUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		h.logger.Error().Err(err).Int64("opportunityID", update.OpportunityID).Msg("Failed to marshal seat update")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, topic := range []int64{update.CommunityID, AllCommunities} {
		for client := range h.clients[topic] {
			select {
			case client.send <- data:
				delivered++
			default:
				h.removeLocked(client)
			}
		}
		if update.CommunityID == AllCommunities {
			break
		}
	}

	h.logger.Debug().
		Int64("opportunityID", update.OpportunityID).
		Int("clientCount", delivered).
		Msg("Seat update broadcasted")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// PublishSeats queues a seat update without blocking the caller. Updates are
// dropped when the hub is saturated; clients catch up on the next change.
func (h *Hub) PublishSeats(opportunityID, communityID int64, current, maxSignUps int) {
	if h == nil {
		return
	}
	update := &SeatUpdate{
		Type:           MessageTypeSeats,
		OpportunityID:  opportunityID,
		CommunityID:    communityID,
		CurrentSignUps: current,
		MaxSignUps:     maxSignUps,
		Timestamp:      time.Now().UTC(),
	}
	select {
	case h.broadcast <- update:
	default:
		h.logger.Warn().Int64("opportunityID", opportunityID).Msg("Hub saturated, seat update dropped")
	}
}

// GetClientsCount returns the number of clients subscribed to a topic
func (h *Hub) GetClientsCount(communityID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[communityID])
}
