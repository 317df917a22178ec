package models

import "time"

// Party modes.
const (
	PartyModeQueue = "queue"
	PartyModeLive  = "live"
)

// Party statuses.
const (
	PartyOpen   = "open"
	PartyActive = "active"
	PartyClosed = "closed"
)

// Member roles. Exactly one host per party, immutable once assigned.
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Member states. left and kicked are terminal.
const (
	MemberJoined = "joined"
	MemberReady  = "ready"
	MemberLeft   = "left"
	MemberKicked = "kicked"
)

// Kick reasons stored alongside the kicked state.
const (
	KickReasonGateTimeout = "gate_timeout"
	KickReasonHostKick    = "host_kick"
)

// Capacity bounds for party creation.
const (
	MinPartySize          = 1
	MaxPartySize          = 20
	MaxAdditionalTrainers = 9
)

// Party is the aggregate root for one raid group.
type Party struct {
	ID                 string     `db:"id" json:"id"`
	BossID             string     `db:"boss_id" json:"boss_id"`
	Mode               string     `db:"mode" json:"mode"`
	HostTrainerID      string     `db:"host_trainer_id" json:"host_trainer_id"`
	MaxSize            int        `db:"max_size" json:"max_size"`
	AdditionalTrainers int        `db:"additional_trainers" json:"additional_trainers"`
	Status             string     `db:"status" json:"status"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	ClosedAt           *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}

// PartyMember is one trainer's membership record within a party.
type PartyMember struct {
	PartyID            string     `db:"party_id" json:"party_id"`
	TrainerID          string     `db:"trainer_id" json:"trainer_id"`
	Role               string     `db:"role" json:"role"`
	State              string     `db:"state" json:"state"`
	KickReason         *string    `db:"kick_reason" json:"kick_reason,omitempty"`
	GateConfirmed      bool       `db:"gate_confirmed" json:"gate_confirmed"`
	JoinedAt           time.Time  `db:"joined_at" json:"joined_at"`
	FriendGateDeadline *time.Time `db:"friend_gate_deadline" json:"friend_gate_deadline,omitempty"`
}

// Active reports whether the member still occupies a capacity slot.
func (m PartyMember) Active() bool {
	return m.State == MemberJoined || m.State == MemberReady
}

// PartySummary is the listing projection for the parties screen.
type PartySummary struct {
	Party
	MemberCount int `db:"member_count" json:"member_count"`
}
