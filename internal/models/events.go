package models

// Lifecycle event types emitted over WebSocket connections for a party.
const (
	EventMemberJoined  = "member_joined"
	EventMemberReady   = "member_ready"
	EventMemberKicked  = "member_kicked"
	EventPartyClosed   = "party_closed"
	EventTicketMatched = "ticket_matched"
	EventMessagePosted = "message_posted"
)

// PartyEvent is the fan-out payload for party lifecycle updates.
type PartyEvent struct {
	Type       string        `json:"type"`
	PartyID    string        `json:"party_id"`
	TrainerID  string        `json:"trainer_id,omitempty"`
	KickReason string        `json:"kick_reason,omitempty"`
	Message    *PartyMessage `json:"message,omitempty"`
}
