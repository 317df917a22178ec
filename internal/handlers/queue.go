package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"raid-service/internal/middleware"
	"raid-service/internal/models"
)

type matcherService interface {
	SubmitTicket(ctx context.Context, trainerID, bossID string) (models.QueueTicket, error)
	CancelTicket(ctx context.Context, ticketID, trainerID string) error
	TryMatch(ctx context.Context, bossID string) (*models.Party, error)
	MyTickets(ctx context.Context, trainerID string) ([]models.QueueTicket, error)
}

// QueueHandler manages queue matchmaking endpoints.
type QueueHandler struct {
	matcher matcherService
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(matcher matcherService) *QueueHandler {
	return &QueueHandler{matcher: matcher}
}

// JoinQueue handles POST /queue/join. Submitting a ticket immediately
// attempts a match for the boss; when the threshold is met the response
// carries the formed party.
func (h *QueueHandler) JoinQueue(c *gin.Context) {
	trainerID := middleware.TrainerID(c)

	var req struct {
		BossID string `json:"boss_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.matcher.SubmitTicket(c.Request.Context(), trainerID, req.BossID)
	if err != nil {
		respondError(c, err)
		return
	}

	party, err := h.matcher.TryMatch(c.Request.Context(), req.BossID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"ticket": ticket}
	if party != nil {
		resp["party"] = party
	}
	c.JSON(http.StatusCreated, resp)
}

// CancelTicket handles POST /queue/cancel.
func (h *QueueHandler) CancelTicket(c *gin.Context) {
	trainerID := middleware.TrainerID(c)

	var req struct {
		TicketID string `json:"ticket_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.matcher.CancelTicket(c.Request.Context(), req.TicketID, trainerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MyTickets handles GET /queue/me.
func (h *QueueHandler) MyTickets(c *gin.Context) {
	tickets, err := h.matcher.MyTickets(c.Request.Context(), middleware.TrainerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}
