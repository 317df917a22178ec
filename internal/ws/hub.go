package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"raid-service/internal/models"
	"raid-service/internal/observability"
)

// Hub maintains active websocket connections per party and fans
// coordinator lifecycle events out to them. It satisfies the
// coordinator's Events sink.
type Hub struct {
	rooms  map[string]map[*websocket.Conn]ConnInfo
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*websocket.Conn]ConnInfo),
		logger: logger,
	}
}

// AddClient registers a websocket connection to a party room.
func (h *Hub) AddClient(partyID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[partyID]; !ok {
		h.rooms[partyID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[partyID][conn] = info
}

// RemoveClient removes a party websocket connection.
func (h *Hub) RemoveClient(partyID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[partyID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, partyID)
		}
	}
}

// Broadcast sends an event to every client in a party room.
func (h *Hub) Broadcast(partyID string, event models.PartyEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[partyID]))
	for conn := range h.rooms[partyID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("websocket write error", zap.String("party_id", partyID), zap.Error(err))
			conn.Close()
			h.RemoveClient(partyID, conn)
			observability.IncWSEvent("ws_error")
		}
	}
	observability.IncWSEvent(event.Type)
}

// Events sink implementation.

func (h *Hub) MemberJoined(_ context.Context, partyID, trainerID string) {
	h.Broadcast(partyID, models.PartyEvent{Type: models.EventMemberJoined, PartyID: partyID, TrainerID: trainerID})
}

func (h *Hub) MemberReady(_ context.Context, partyID, trainerID string) {
	h.Broadcast(partyID, models.PartyEvent{Type: models.EventMemberReady, PartyID: partyID, TrainerID: trainerID})
}

func (h *Hub) MemberKicked(_ context.Context, partyID, trainerID, reason string) {
	h.Broadcast(partyID, models.PartyEvent{Type: models.EventMemberKicked, PartyID: partyID, TrainerID: trainerID, KickReason: reason})
}

func (h *Hub) PartyClosed(_ context.Context, partyID string) {
	h.Broadcast(partyID, models.PartyEvent{Type: models.EventPartyClosed, PartyID: partyID})
}

func (h *Hub) TicketMatched(_ context.Context, partyID string, trainerIDs []string) {
	for _, trainerID := range trainerIDs {
		h.Broadcast(partyID, models.PartyEvent{Type: models.EventTicketMatched, PartyID: partyID, TrainerID: trainerID})
	}
}

func (h *Hub) MessagePosted(_ context.Context, msg models.PartyMessage) {
	h.Broadcast(msg.PartyID, models.PartyEvent{Type: models.EventMessagePosted, PartyID: msg.PartyID, Message: &msg})
}
