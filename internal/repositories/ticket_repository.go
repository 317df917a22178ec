package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"raid-service/internal/models"
)

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrDuplicateTicket = errors.New("trainer already has a waiting ticket for boss")

	// ErrStaleState signals a conditional update that matched no rows:
	// the row's state changed under a concurrent writer.
	ErrStaleState = errors.New("state changed concurrently")
)

// TicketRepository abstracts queue ticket persistence.
type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket models.QueueTicket) (models.QueueTicket, error)
	GetTicket(ctx context.Context, ticketID string) (models.QueueTicket, error)
	ListWaitingTickets(ctx context.Context, bossID string) ([]models.QueueTicket, error)
	ListTicketsForTrainer(ctx context.Context, trainerID string) ([]models.QueueTicket, error)
	UpdateTicketStatus(ctx context.Context, ticketID, from, to string, matchedAt *time.Time) error
	ExpireBefore(ctx context.Context, bossID string, cutoff time.Time) (int64, error)
	ListStaleTicketBosses(ctx context.Context, cutoff time.Time) ([]string, error)
}

// TicketRepo is a sqlx implementation of TicketRepository.
type TicketRepo struct {
	db *sqlx.DB
}

// NewTicketRepo constructs a TicketRepo.
func NewTicketRepo(db *sqlx.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// CreateTicket inserts a waiting ticket. The partial unique index on
// (trainer_id, boss_id) WHERE status='waiting' rejects duplicates.
func (r *TicketRepo) CreateTicket(ctx context.Context, ticket models.QueueTicket) (models.QueueTicket, error) {
	var created models.QueueTicket
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO queue_tickets (id, trainer_id, boss_id, status)
         VALUES ($1, $2, $3, $4)
         RETURNING id, trainer_id, boss_id, status, created_at, matched_at`,
		ticket.ID, ticket.TrainerID, ticket.BossID, models.TicketWaiting,
	).StructScan(&created)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.QueueTicket{}, ErrDuplicateTicket
		}
		return models.QueueTicket{}, err
	}
	return created, nil
}

// GetTicket fetches a single ticket.
func (r *TicketRepo) GetTicket(ctx context.Context, ticketID string) (models.QueueTicket, error) {
	var ticket models.QueueTicket
	err := r.db.GetContext(ctx, &ticket, `SELECT * FROM queue_tickets WHERE id=$1`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QueueTicket{}, ErrTicketNotFound
	}
	return ticket, err
}

// ListWaitingTickets returns waiting tickets for a boss, oldest first.
func (r *TicketRepo) ListWaitingTickets(ctx context.Context, bossID string) ([]models.QueueTicket, error) {
	var tickets []models.QueueTicket
	err := r.db.SelectContext(ctx, &tickets,
		`SELECT * FROM queue_tickets WHERE boss_id=$1 AND status='waiting' ORDER BY created_at ASC, id ASC`,
		bossID)
	return tickets, err
}

// ListTicketsForTrainer returns a trainer's tickets, newest first.
func (r *TicketRepo) ListTicketsForTrainer(ctx context.Context, trainerID string) ([]models.QueueTicket, error) {
	var tickets []models.QueueTicket
	err := r.db.SelectContext(ctx, &tickets,
		`SELECT * FROM queue_tickets WHERE trainer_id=$1 ORDER BY created_at DESC`,
		trainerID)
	return tickets, err
}

// UpdateTicketStatus transitions a ticket only if it still holds the
// expected status.
func (r *TicketRepo) UpdateTicketStatus(ctx context.Context, ticketID, from, to string, matchedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE queue_tickets SET status=$1, matched_at=$2 WHERE id=$3 AND status=$4`,
		to, matchedAt, ticketID, from)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrStaleState
	}
	return nil
}

// ExpireBefore transitions one boss's stale waiting tickets to expired
// and reports how many were affected. Scoped per boss so callers can
// hold that boss's serialization lock.
func (r *TicketRepo) ExpireBefore(ctx context.Context, bossID string, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE queue_tickets SET status='expired' WHERE boss_id=$1 AND status='waiting' AND created_at < $2`,
		bossID, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListStaleTicketBosses returns ids of bosses holding at least one
// waiting ticket past the cutoff. Used by the proactive sweep.
func (r *TicketRepo) ListStaleTicketBosses(ctx context.Context, cutoff time.Time) ([]string, error) {
	var bossIDs []string
	err := r.db.SelectContext(ctx, &bossIDs,
		`SELECT DISTINCT boss_id FROM queue_tickets WHERE status='waiting' AND created_at < $1`,
		cutoff)
	return bossIDs, err
}
