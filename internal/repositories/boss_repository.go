package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"raid-service/internal/models"
)

var ErrBossNotFound = errors.New("boss not found")

// BossRepository abstracts the read-only raid boss catalog.
type BossRepository interface {
	ListBosses(ctx context.Context, tier string) ([]models.RaidBoss, error)
	GetBoss(ctx context.Context, bossID string) (models.RaidBoss, error)
}

// BossRepo is a sqlx implementation of BossRepository.
type BossRepo struct {
	db *sqlx.DB
}

// NewBossRepo constructs a BossRepo.
func NewBossRepo(db *sqlx.DB) *BossRepo {
	return &BossRepo{db: db}
}

// ListBosses returns the catalog, optionally filtered by tier.
func (r *BossRepo) ListBosses(ctx context.Context, tier string) ([]models.RaidBoss, error) {
	var bosses []models.RaidBoss
	if tier == "" {
		err := r.db.SelectContext(ctx, &bosses, `SELECT * FROM raid_bosses ORDER BY tier, name`)
		return bosses, err
	}
	err := r.db.SelectContext(ctx, &bosses, `SELECT * FROM raid_bosses WHERE tier=$1 ORDER BY name`, tier)
	return bosses, err
}

// GetBoss fetches a single catalog entry.
func (r *BossRepo) GetBoss(ctx context.Context, bossID string) (models.RaidBoss, error) {
	var boss models.RaidBoss
	err := r.db.GetContext(ctx, &boss, `SELECT * FROM raid_bosses WHERE id=$1`, bossID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RaidBoss{}, ErrBossNotFound
	}
	return boss, err
}
