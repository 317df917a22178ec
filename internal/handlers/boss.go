package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"raid-service/internal/repositories"
)

// BossHandler serves the read-only raid boss catalog.
type BossHandler struct {
	bossRepo repositories.BossRepository
}

// NewBossHandler constructs a BossHandler.
func NewBossHandler(bossRepo repositories.BossRepository) *BossHandler {
	return &BossHandler{bossRepo: bossRepo}
}

// ListBosses handles GET /bosses. An optional tier query filters the
// catalog.
func (h *BossHandler) ListBosses(c *gin.Context) {
	bosses, err := h.bossRepo.ListBosses(c.Request.Context(), c.Query("tier"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bosses": bosses})
}

// GetBoss handles GET /bosses/:boss_id.
func (h *BossHandler) GetBoss(c *gin.Context) {
	boss, err := h.bossRepo.GetBoss(c.Request.Context(), c.Param("boss_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, boss)
}
