package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"raid-service/internal/models"
)

// MessageRepository abstracts the append-only party chat log.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.PartyMessage) (models.PartyMessage, error)
	ListMessages(ctx context.Context, partyID string) ([]models.PartyMessage, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage appends a message to the party log.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.PartyMessage) (models.PartyMessage, error) {
	var created models.PartyMessage
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO party_messages (id, party_id, sender_trainer_id, text)
         VALUES ($1, $2, $3, $4)
         RETURNING id, party_id, sender_trainer_id, text, sent_at`,
		msg.ID, msg.PartyID, msg.SenderTrainerID, msg.Text,
	).StructScan(&created)
	return created, err
}

// ListMessages returns the party log in insertion order.
func (r *MessageRepo) ListMessages(ctx context.Context, partyID string) ([]models.PartyMessage, error) {
	var msgs []models.PartyMessage
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT * FROM party_messages WHERE party_id=$1 ORDER BY sent_at ASC, id ASC`, partyID)
	return msgs, err
}
