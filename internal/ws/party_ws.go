package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"raid-service/internal/observability"
	"raid-service/internal/repositories"
)

// TokenVerifier validates a bearer token and returns the trainer ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// PartyWebSocketHandler handles party lobby websocket connections.
type PartyWebSocketHandler struct {
	hub       *Hub
	partyRepo repositories.PartyRepository
	verifier  TokenVerifier
	logger    *zap.Logger
}

// NewPartyWebSocketHandler constructs a PartyWebSocketHandler.
func NewPartyWebSocketHandler(hub *Hub, partyRepo repositories.PartyRepository, verifier TokenVerifier, logger *zap.Logger) *PartyWebSocketHandler {
	return &PartyWebSocketHandler{hub: hub, partyRepo: partyRepo, verifier: verifier, logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client in the party room.
// Only active members may subscribe to a party's event stream.
func (h *PartyWebSocketHandler) Handle(c *gin.Context) {
	partyID := c.Param("party_id")
	if partyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid party id"})
		return
	}

	ctx, span := otel.Tracer("raid-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}

	trainerID, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.partyRepo.GetMember(ctx, partyID, trainerID)
	if err != nil || !member.Active() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a party member"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	meta := observability.ClientMetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		TrainerID:   trainerID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(partyID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.logger.Info("websocket connected",
		zap.String("party_id", partyID),
		zap.String("trainer_id", trainerID),
		zap.String("conn_id", info.ConnID),
	)

	// Keep connection alive and clean up on close.
	go func() {
		defer func() {
			h.hub.RemoveClient(partyID, conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
					h.logger.Debug("websocket read error",
						zap.String("party_id", partyID),
						zap.String("conn_id", info.ConnID),
						zap.Error(err),
					)
				}
				return
			}
		}
	}()
}
