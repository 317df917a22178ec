package coordinator

import (
	"context"

	"raid-service/internal/models"
)

// Events receives lifecycle notifications from the coordinator. Delivery
// is best-effort: implementations must not block state transitions, and
// the coordinator always dispatches outside its serialization scopes.
type Events interface {
	MemberJoined(ctx context.Context, partyID, trainerID string)
	MemberReady(ctx context.Context, partyID, trainerID string)
	MemberKicked(ctx context.Context, partyID, trainerID, reason string)
	PartyClosed(ctx context.Context, partyID string)
	TicketMatched(ctx context.Context, partyID string, trainerIDs []string)
	MessagePosted(ctx context.Context, msg models.PartyMessage)
}

// NopEvents discards every event.
type NopEvents struct{}

func (NopEvents) MemberJoined(context.Context, string, string)         {}
func (NopEvents) MemberReady(context.Context, string, string)          {}
func (NopEvents) MemberKicked(context.Context, string, string, string) {}
func (NopEvents) PartyClosed(context.Context, string)                  {}
func (NopEvents) TicketMatched(context.Context, string, []string)      {}
func (NopEvents) MessagePosted(context.Context, models.PartyMessage)   {}

type multiEvents []Events

// MultiEvents fans events out to several sinks in order.
func MultiEvents(sinks ...Events) Events {
	return multiEvents(sinks)
}

func (m multiEvents) MemberJoined(ctx context.Context, partyID, trainerID string) {
	for _, s := range m {
		s.MemberJoined(ctx, partyID, trainerID)
	}
}

func (m multiEvents) MemberReady(ctx context.Context, partyID, trainerID string) {
	for _, s := range m {
		s.MemberReady(ctx, partyID, trainerID)
	}
}

func (m multiEvents) MemberKicked(ctx context.Context, partyID, trainerID, reason string) {
	for _, s := range m {
		s.MemberKicked(ctx, partyID, trainerID, reason)
	}
}

func (m multiEvents) PartyClosed(ctx context.Context, partyID string) {
	for _, s := range m {
		s.PartyClosed(ctx, partyID)
	}
}

func (m multiEvents) TicketMatched(ctx context.Context, partyID string, trainerIDs []string) {
	for _, s := range m {
		s.TicketMatched(ctx, partyID, trainerIDs)
	}
}

func (m multiEvents) MessagePosted(ctx context.Context, msg models.PartyMessage) {
	for _, s := range m {
		s.MessagePosted(ctx, msg)
	}
}
