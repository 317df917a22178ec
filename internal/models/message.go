package models

import "time"

// PartyMessage is an append-only chat entry scoped to a party.
// SenderTrainerID is nil for system messages.
type PartyMessage struct {
	ID              string    `db:"id" json:"id"`
	PartyID         string    `db:"party_id" json:"party_id"`
	SenderTrainerID *string   `db:"sender_trainer_id" json:"sender_trainer_id,omitempty"`
	Text            string    `db:"text" json:"text"`
	SentAt          time.Time `db:"sent_at" json:"sent_at"`
}

// System reports whether the message was emitted by the coordinator itself.
func (m PartyMessage) System() bool {
	return m.SenderTrainerID == nil
}
