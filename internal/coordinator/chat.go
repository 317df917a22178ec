package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"raid-service/internal/models"
	"raid-service/internal/observability"
	"raid-service/internal/repositories"
)

// ChatLog manages the append-only message history of a party, including
// system messages emitted on lifecycle transitions.
type ChatLog struct {
	messages  repositories.MessageRepository
	parties   repositories.PartyRepository
	events    Events
	charLimit int
	now       func() time.Time
}

// NewChatLog constructs a ChatLog.
func NewChatLog(messages repositories.MessageRepository, parties repositories.PartyRepository, events Events, charLimit int) *ChatLog {
	return &ChatLog{
		messages:  messages,
		parties:   parties,
		events:    events,
		charLimit: charLimit,
		now:       time.Now,
	}
}

// PostMessage appends a trainer's message to the party log.
func (c *ChatLog) PostMessage(ctx context.Context, partyID, senderID, text string) (models.PartyMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.PartyMessage{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > c.charLimit {
		return models.PartyMessage{}, ErrMessageTooLong
	}

	member, err := c.parties.GetMember(ctx, partyID, senderID)
	if errors.Is(err, repositories.ErrMemberNotFound) {
		return models.PartyMessage{}, ErrNotMember
	}
	if err != nil {
		return models.PartyMessage{}, err
	}
	if !member.Active() || gateElapsed(member, c.now()) {
		return models.PartyMessage{}, ErrNotMember
	}

	msg, err := c.messages.CreateMessage(ctx, models.PartyMessage{
		ID:              uuid.NewString(),
		PartyID:         partyID,
		SenderTrainerID: &senderID,
		Text:            text,
		SentAt:          c.now(),
	})
	if err != nil {
		return models.PartyMessage{}, err
	}

	observability.IncMessagePosted("trainer")
	c.events.MessagePosted(ctx, msg)
	return msg, nil
}

// PostSystemMessage appends a coordinator-generated message. Internal
// only; callers are the roster and matcher on state transitions.
func (c *ChatLog) PostSystemMessage(ctx context.Context, partyID, text string) (models.PartyMessage, error) {
	msg, err := c.messages.CreateMessage(ctx, models.PartyMessage{
		ID:      uuid.NewString(),
		PartyID: partyID,
		Text:    text,
		SentAt:  c.now(),
	})
	if err != nil {
		return models.PartyMessage{}, err
	}

	observability.IncMessagePosted("system")
	c.events.MessagePosted(ctx, msg)
	return msg, nil
}

// ListMessages returns the party log to a member, in insertion order.
func (c *ChatLog) ListMessages(ctx context.Context, partyID, trainerID string) ([]models.PartyMessage, error) {
	member, err := c.parties.GetMember(ctx, partyID, trainerID)
	if errors.Is(err, repositories.ErrMemberNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	if !member.Active() || gateElapsed(member, c.now()) {
		return nil, ErrNotMember
	}
	return c.messages.ListMessages(ctx, partyID)
}

// gateElapsed reports whether a member's friend-gate deadline has passed
// without confirmation. Such members lose chat access immediately, even
// before a sweep records the kick.
func gateElapsed(m models.PartyMember, now time.Time) bool {
	return m.State == models.MemberJoined && !m.GateConfirmed &&
		m.FriendGateDeadline != nil && m.FriendGateDeadline.Before(now)
}
