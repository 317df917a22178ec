package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"raid-service/internal/mocks"
	"raid-service/internal/models"
)

func TestTicketMatchedNotifiesEveryTrainer(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	dispatcher := NewDispatcher(publisher, "push.notifications", zap.NewNop())

	publisher.On("Publish", mock.Anything, "push.notifications", mock.MatchedBy(func(event any) bool {
		n, ok := event.(Notification)
		return ok && n.Type == TypeQueueMatch && n.PartyID == "p1"
	})).Return(nil).Times(3)

	dispatcher.TicketMatched(context.Background(), "p1", []string{"ash", "misty", "brock"})
	publisher.AssertExpectations(t)
}

func TestMessagePostedSkipsSystemMessages(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	dispatcher := NewDispatcher(publisher, "push.notifications", zap.NewNop())

	dispatcher.MessagePosted(context.Background(), models.PartyMessage{
		ID:      "m1",
		PartyID: "p1",
		Text:    "Party closed.",
	})

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestMessagePostedNotifiesMention(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	dispatcher := NewDispatcher(publisher, "push.notifications", zap.NewNop())

	sender := "ash"
	publisher.On("Publish", mock.Anything, "push.notifications", mock.MatchedBy(func(event any) bool {
		n, ok := event.(Notification)
		return ok && n.Type == TypePartyMention && n.Body == "ready when you are"
	})).Return(nil).Once()

	dispatcher.MessagePosted(context.Background(), models.PartyMessage{
		ID:              "m1",
		PartyID:         "p1",
		SenderTrainerID: &sender,
		Text:            "ready when you are",
	})
	publisher.AssertExpectations(t)
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	dispatcher := NewDispatcher(publisher, "push.notifications", zap.NewNop())

	publisher.On("Publish", mock.Anything, "push.notifications", mock.Anything).
		Return(context.DeadlineExceeded).Once()

	require.NotPanics(t, func() {
		dispatcher.TicketMatched(context.Background(), "p1", []string{"ash"})
	})
	publisher.AssertExpectations(t)
}
