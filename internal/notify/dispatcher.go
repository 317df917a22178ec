package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"raid-service/internal/models"
)

// Push notification types understood by the client.
const (
	TypeQueueMatch   = "queue_match"
	TypePartyMention = "party_mention"
)

// Publisher is the broker abstraction notifications are sent through.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Notification is the envelope handed to the downstream push pipeline.
type Notification struct {
	Type       string    `json:"type"`
	TrainerID  string    `json:"trainer_id,omitempty"`
	PartyID    string    `json:"party_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher turns coordinator lifecycle events into fire-and-forget
// push notifications. Only ticketMatched and messagePosted notify; a
// publish failure never rolls back the transition that caused it.
type Dispatcher struct {
	publisher  Publisher
	routingKey string
	logger     *zap.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(publisher Publisher, routingKey string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, routingKey: routingKey, logger: logger}
}

func (d *Dispatcher) MemberJoined(context.Context, string, string)         {}
func (d *Dispatcher) MemberReady(context.Context, string, string)          {}
func (d *Dispatcher) MemberKicked(context.Context, string, string, string) {}
func (d *Dispatcher) PartyClosed(context.Context, string)                  {}

// TicketMatched pushes a match notification to every matched trainer.
func (d *Dispatcher) TicketMatched(ctx context.Context, partyID string, trainerIDs []string) {
	for _, trainerID := range trainerIDs {
		d.send(ctx, Notification{
			Type:       TypeQueueMatch,
			TrainerID:  trainerID,
			PartyID:    partyID,
			Title:      "Your raid is ready!",
			Body:       "You were matched into a party. Add the host and get ready.",
			OccurredAt: time.Now().UTC(),
		})
	}
}

// MessagePosted pushes a mention notification for trainer messages.
// System messages stay in the lobby log only.
func (d *Dispatcher) MessagePosted(ctx context.Context, msg models.PartyMessage) {
	if msg.System() {
		return
	}
	d.send(ctx, Notification{
		Type:       TypePartyMention,
		PartyID:    msg.PartyID,
		Title:      "New party message",
		Body:       msg.Text,
		OccurredAt: time.Now().UTC(),
	})
}

func (d *Dispatcher) send(ctx context.Context, n Notification) {
	if d == nil || d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, d.routingKey, n); err != nil {
		d.logger.Warn("notification publish failed",
			zap.String("type", n.Type),
			zap.String("party_id", n.PartyID),
			zap.Error(err),
		)
	}
}
