package coordinator

import "errors"

// Caller-facing error taxonomy. All of these are expected, recoverable
// outcomes; the HTTP layer translates them into 4xx responses.
var (
	ErrInvalidCapacity = errors.New("party capacity out of range")
	ErrPartyFull       = errors.New("party is full")
	ErrPartyClosed     = errors.New("party is closed")
	ErrAlreadyMember   = errors.New("trainer is already a member of this party")
	ErrNotMember       = errors.New("trainer is not a member of this party")
	ErrNotHost         = errors.New("only the host may perform this action")
	ErrInvalidTarget   = errors.New("the host cannot be targeted")
	ErrInvalidState    = errors.New("operation not allowed in the current state")
	ErrDuplicateTicket = errors.New("trainer already has a waiting ticket for this boss")
	ErrNotOwner        = errors.New("ticket belongs to another trainer")
	ErrGateExpired     = errors.New("friend gate deadline has passed")
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrMessageTooLong  = errors.New("message text exceeds the character limit")
)
