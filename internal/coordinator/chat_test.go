package coordinator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"raid-service/internal/models"
	"raid-service/internal/repositories"
)

func newTestChat(t *testing.T, charLimit int) (*ChatLog, *repositories.InMemoryStore) {
	t.Helper()
	store := repositories.NewInMemoryStore()
	chat := NewChatLog(store, store, NopEvents{}, charLimit)
	return chat, store
}

func seedParty(t *testing.T, store *repositories.InMemoryStore, partyID string, members ...models.PartyMember) {
	t.Helper()
	err := store.CreateParty(context.Background(), models.Party{
		ID:            partyID,
		BossID:        "zapdos",
		Mode:          models.PartyModeLive,
		HostTrainerID: "host",
		MaxSize:       5,
		Status:        models.PartyActive,
	}, members)
	require.NoError(t, err)
}

func TestPostMessageValidation(t *testing.T) {
	chat, store := newTestChat(t, 10)
	seedParty(t, store, "p1", models.PartyMember{
		PartyID: "p1", TrainerID: "host", Role: models.RoleHost, State: models.MemberReady,
	})
	ctx := context.Background()

	_, err := chat.PostMessage(ctx, "p1", "host", "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = chat.PostMessage(ctx, "p1", "host", strings.Repeat("x", 11))
	require.ErrorIs(t, err, ErrMessageTooLong)

	msg, err := chat.PostMessage(ctx, "p1", "host", "  let's go ")
	require.NoError(t, err)
	require.Equal(t, "let's go", msg.Text)
	require.NotNil(t, msg.SenderTrainerID)
	require.Equal(t, "host", *msg.SenderTrainerID)
}

func TestPostMessageRequiresActiveMembership(t *testing.T) {
	chat, store := newTestChat(t, 500)
	seedParty(t, store, "p1",
		models.PartyMember{PartyID: "p1", TrainerID: "host", Role: models.RoleHost, State: models.MemberReady},
		models.PartyMember{PartyID: "p1", TrainerID: "gone", Role: models.RoleGuest, State: models.MemberLeft},
	)
	ctx := context.Background()

	_, err := chat.PostMessage(ctx, "p1", "stranger", "hi")
	require.ErrorIs(t, err, ErrNotMember)

	_, err = chat.PostMessage(ctx, "p1", "gone", "hi")
	require.ErrorIs(t, err, ErrNotMember)
}

func TestChatRejectsMemberPastFriendGateDeadline(t *testing.T) {
	chat, store := newTestChat(t, 500)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	chat.now = func() time.Time { return clock }

	deadline := clock.Add(120 * time.Second)
	seedParty(t, store, "p1",
		models.PartyMember{PartyID: "p1", TrainerID: "host", Role: models.RoleHost, State: models.MemberReady, GateConfirmed: true},
		models.PartyMember{PartyID: "p1", TrainerID: "guest", Role: models.RoleGuest, State: models.MemberJoined, FriendGateDeadline: &deadline},
	)
	ctx := context.Background()

	// Inside the gate window the guest can talk.
	_, err := chat.PostMessage(ctx, "p1", "guest", "adding you now")
	require.NoError(t, err)

	// Past the deadline the guest is out of the party even before a
	// sweep records the kick.
	clock = deadline.Add(time.Second)
	_, err = chat.PostMessage(ctx, "p1", "guest", "wait for me")
	require.ErrorIs(t, err, ErrNotMember)
	_, err = chat.ListMessages(ctx, "p1", "guest")
	require.ErrorIs(t, err, ErrNotMember)

	// The host is unaffected.
	_, err = chat.ListMessages(ctx, "p1", "host")
	require.NoError(t, err)
}

func TestListMessagesMemberOnlyInsertionOrder(t *testing.T) {
	chat, store := newTestChat(t, 500)
	seedParty(t, store, "p1",
		models.PartyMember{PartyID: "p1", TrainerID: "host", Role: models.RoleHost, State: models.MemberReady},
		models.PartyMember{PartyID: "p1", TrainerID: "guest", Role: models.RoleGuest, State: models.MemberJoined},
	)
	ctx := context.Background()

	_, err := chat.PostMessage(ctx, "p1", "host", "first")
	require.NoError(t, err)
	_, err = chat.PostSystemMessage(ctx, "p1", "guest joined the lobby.")
	require.NoError(t, err)
	_, err = chat.PostMessage(ctx, "p1", "guest", "second")
	require.NoError(t, err)

	msgs, err := chat.ListMessages(ctx, "p1", "guest")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "first", msgs[0].Text)
	require.True(t, msgs[1].System())
	require.Equal(t, "second", msgs[2].Text)

	_, err = chat.ListMessages(ctx, "p1", "stranger")
	require.ErrorIs(t, err, ErrNotMember)
}

func TestSystemMessageHasNoSender(t *testing.T) {
	chat, store := newTestChat(t, 500)
	seedParty(t, store, "p1", models.PartyMember{
		PartyID: "p1", TrainerID: "host", Role: models.RoleHost, State: models.MemberReady,
	})

	msg, err := chat.PostSystemMessage(context.Background(), "p1", "Party closed.")
	require.NoError(t, err)
	require.Nil(t, msg.SenderTrainerID)
	require.True(t, msg.System())
	require.False(t, msg.SentAt.IsZero())
	require.WithinDuration(t, time.Now(), msg.SentAt, time.Minute)
}
