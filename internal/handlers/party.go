package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"raid-service/internal/coordinator"
	"raid-service/internal/middleware"
	"raid-service/internal/models"
)

type rosterService interface {
	CreateParty(ctx context.Context, hostID, bossID string, maxSize, additionalTrainers int, mode string) (models.Party, error)
	JoinParty(ctx context.Context, partyID, trainerID string) (models.PartyMember, error)
	ConfirmAddedHost(ctx context.Context, partyID, trainerID string) error
	MarkReady(ctx context.Context, partyID, trainerID string) error
	KickMember(ctx context.Context, partyID, actingTrainerID, targetTrainerID string) error
	LeaveParty(ctx context.Context, partyID, trainerID string) error
	CloseParty(ctx context.Context, partyID, actingTrainerID string) error
	Snapshot(ctx context.Context, partyID string) (coordinator.PartySnapshot, error)
	ListOpenParties(ctx context.Context) ([]models.PartySummary, error)
}

type chatService interface {
	PostMessage(ctx context.Context, partyID, senderID, text string) (models.PartyMessage, error)
	ListMessages(ctx context.Context, partyID, trainerID string) ([]models.PartyMessage, error)
}

// PartyHandler manages party lifecycle and chat endpoints.
type PartyHandler struct {
	roster rosterService
	chat   chatService
}

// NewPartyHandler constructs a PartyHandler.
func NewPartyHandler(roster rosterService, chat chatService) *PartyHandler {
	return &PartyHandler{roster: roster, chat: chat}
}

// CreateParty handles POST /party.
func (h *PartyHandler) CreateParty(c *gin.Context) {
	trainerID := middleware.TrainerID(c)

	var req struct {
		BossID             string `json:"boss_id" binding:"required"`
		MaxSize            int    `json:"max_size" binding:"required"`
		AdditionalTrainers int    `json:"additional_trainers"`
		Mode               string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	party, err := h.roster.CreateParty(c.Request.Context(), trainerID, req.BossID, req.MaxSize, req.AdditionalTrainers, req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, party)
}

// ListParties handles GET /parties.
func (h *PartyHandler) ListParties(c *gin.Context) {
	parties, err := h.roster.ListOpenParties(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parties": parties})
}

// GetParty handles GET /party/:party_id.
func (h *PartyHandler) GetParty(c *gin.Context) {
	snapshot, err := h.roster.Snapshot(c.Request.Context(), c.Param("party_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// JoinParty handles POST /party/:party_id/join.
func (h *PartyHandler) JoinParty(c *gin.Context) {
	member, err := h.roster.JoinParty(c.Request.Context(), c.Param("party_id"), middleware.TrainerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// ConfirmAddedHost handles POST /party/:party_id/added-host.
func (h *PartyHandler) ConfirmAddedHost(c *gin.Context) {
	if err := h.roster.ConfirmAddedHost(c.Request.Context(), c.Param("party_id"), middleware.TrainerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkReady handles POST /party/:party_id/ready.
func (h *PartyHandler) MarkReady(c *gin.Context) {
	if err := h.roster.MarkReady(c.Request.Context(), c.Param("party_id"), middleware.TrainerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LeaveParty handles POST /party/:party_id/leave.
func (h *PartyHandler) LeaveParty(c *gin.Context) {
	if err := h.roster.LeaveParty(c.Request.Context(), c.Param("party_id"), middleware.TrainerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CloseParty handles POST /party/:party_id/close.
func (h *PartyHandler) CloseParty(c *gin.Context) {
	if err := h.roster.CloseParty(c.Request.Context(), c.Param("party_id"), middleware.TrainerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// KickMember handles POST /party/:party_id/kick.
func (h *PartyHandler) KickMember(c *gin.Context) {
	var req struct {
		TrainerID string `json:"trainer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.roster.KickMember(c.Request.Context(), c.Param("party_id"), middleware.TrainerID(c), req.TrainerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMessages handles GET /party/:party_id/messages.
func (h *PartyHandler) GetMessages(c *gin.Context) {
	msgs, err := h.chat.ListMessages(c.Request.Context(), c.Param("party_id"), middleware.TrainerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage handles POST /party/:party_id/message.
func (h *PartyHandler) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.chat.PostMessage(c.Request.Context(), c.Param("party_id"), middleware.TrainerID(c), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
