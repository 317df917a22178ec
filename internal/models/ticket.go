package models

import "time"

// Queue ticket statuses.
const (
	TicketWaiting   = "waiting"
	TicketMatched   = "matched"
	TicketCancelled = "cancelled"
	TicketExpired   = "expired"
)

// QueueTicket is one trainer's standing request to be matched for a boss.
type QueueTicket struct {
	ID        string     `db:"id" json:"id"`
	TrainerID string     `db:"trainer_id" json:"trainer_id"`
	BossID    string     `db:"boss_id" json:"boss_id"`
	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	MatchedAt *time.Time `db:"matched_at" json:"matched_at,omitempty"`
}
