package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"raid-service/internal/coordinator"
	"raid-service/internal/repositories"
)

// respondError maps coordinator and repository sentinels onto HTTP
// statuses. Anything unclassified is an internal error.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrBossNotFound),
		errors.Is(err, repositories.ErrPartyNotFound),
		errors.Is(err, repositories.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, coordinator.ErrNotMember),
		errors.Is(err, coordinator.ErrNotHost),
		errors.Is(err, coordinator.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, coordinator.ErrPartyFull),
		errors.Is(err, coordinator.ErrPartyClosed),
		errors.Is(err, coordinator.ErrAlreadyMember),
		errors.Is(err, coordinator.ErrDuplicateTicket),
		errors.Is(err, coordinator.ErrInvalidState),
		errors.Is(err, coordinator.ErrGateExpired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, coordinator.ErrInvalidCapacity),
		errors.Is(err, coordinator.ErrInvalidTarget),
		errors.Is(err, coordinator.ErrEmptyMessage),
		errors.Is(err, coordinator.ErrMessageTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
