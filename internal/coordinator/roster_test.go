package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"raid-service/internal/config"
	"raid-service/internal/models"
	"raid-service/internal/repositories"
)

func newTestRoster(t *testing.T, cfg RosterConfig) (*Roster, *repositories.InMemoryStore, *time.Time) {
	t.Helper()
	if cfg.GateDuration == 0 {
		cfg.GateDuration = 120 * time.Second
	}
	if cfg.HostLeavePolicy == "" {
		cfg.HostLeavePolicy = config.HostLeaveClose
	}

	store := repositories.NewInMemoryStore()
	store.SeedBoss(models.RaidBoss{ID: "zapdos", Name: "Zapdos", Tier: "5", RaidType: models.RaidTypeLegendary})

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	chat := NewChatLog(store, store, NopEvents{}, 500)
	chat.now = func() time.Time { return clock }

	roster := NewRoster(store, store, chat, NopEvents{}, zap.NewNop(), cfg)
	roster.now = func() time.Time { return clock }
	return roster, store, &clock
}

func TestCreatePartyRejectsBadCapacity(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	_, err := roster.CreateParty(ctx, "host", "zapdos", 0, 0, "")
	require.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = roster.CreateParty(ctx, "host", "zapdos", 21, 0, "")
	require.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = roster.CreateParty(ctx, "host", "zapdos", 10, 10, "")
	require.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestCreatePartyHostStartsReady(t *testing.T) {
	roster, store, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	require.Equal(t, models.PartyOpen, party.Status)
	require.Equal(t, models.PartyModeLive, party.Mode)

	host, err := store.GetMember(ctx, party.ID, "host")
	require.NoError(t, err)
	require.Equal(t, models.RoleHost, host.Role)
	require.Equal(t, models.MemberReady, host.State)
	require.True(t, host.GateConfirmed)
	require.Nil(t, host.FriendGateDeadline)
}

func TestCreatePartyUnknownBoss(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})

	_, err := roster.CreateParty(context.Background(), "host", "missingno", 5, 0, "")
	require.ErrorIs(t, err, repositories.ErrBossNotFound)
}

func TestJoinPartyStartsFriendGate(t *testing.T) {
	roster, store, clock := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)

	member, err := roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)
	require.Equal(t, models.MemberJoined, member.State)
	require.False(t, member.GateConfirmed)
	require.NotNil(t, member.FriendGateDeadline)
	require.Equal(t, clock.Add(120*time.Second), *member.FriendGateDeadline)

	got, err := store.GetParty(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, models.PartyActive, got.Status)
}

func TestJoinPartyAlreadyMember(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)

	_, err = roster.JoinParty(ctx, party.ID, "host")
	require.ErrorIs(t, err, ErrAlreadyMember)

	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.ErrorIs(t, err, ErrAlreadyMember)
}

func TestAdditionalTrainersCountAgainstCapacity(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	// Duo lobby where the host brings one extra account: nobody else fits.
	party, err := roster.CreateParty(ctx, "host", "zapdos", 2, 1, "")
	require.NoError(t, err)

	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.ErrorIs(t, err, ErrPartyFull)
}

func TestJoinClosedParty(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	require.NoError(t, roster.CloseParty(ctx, party.ID, "host"))

	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.ErrorIs(t, err, ErrPartyClosed)
}

func TestConfirmAddedHostThenReady(t *testing.T) {
	roster, store, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)

	// Ready before the gate is confirmed is rejected.
	require.ErrorIs(t, roster.MarkReady(ctx, party.ID, "guest"), ErrInvalidState)

	require.NoError(t, roster.ConfirmAddedHost(ctx, party.ID, "guest"))
	member, err := store.GetMember(ctx, party.ID, "guest")
	require.NoError(t, err)
	require.True(t, member.GateConfirmed)
	require.Nil(t, member.FriendGateDeadline)

	require.NoError(t, roster.MarkReady(ctx, party.ID, "guest"))
	member, err = store.GetMember(ctx, party.ID, "guest")
	require.NoError(t, err)
	require.Equal(t, models.MemberReady, member.State)
}

func TestConfirmAddedHostByHost(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)

	require.ErrorIs(t, roster.ConfirmAddedHost(ctx, party.ID, "host"), ErrInvalidState)
}

func TestFriendGateExpiryKicksMember(t *testing.T) {
	roster, store, clock := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)

	*clock = clock.Add(121 * time.Second)

	require.ErrorIs(t, roster.ConfirmAddedHost(ctx, party.ID, "guest"), ErrGateExpired)

	member, err := store.GetMember(ctx, party.ID, "guest")
	require.NoError(t, err)
	require.Equal(t, models.MemberKicked, member.State)
	require.NotNil(t, member.KickReason)
	require.Equal(t, models.KickReasonGateTimeout, *member.KickReason)

	// Retrying after the kick reports the same expiry.
	require.ErrorIs(t, roster.ConfirmAddedHost(ctx, party.ID, "guest"), ErrGateExpired)
}

func TestSnapshotAppliesLazySweep(t *testing.T) {
	roster, _, clock := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "slowpoke")
	require.NoError(t, err)

	*clock = clock.Add(2 * time.Minute).Add(time.Second)

	snapshot, err := roster.Snapshot(ctx, party.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Members, 2)
	for _, m := range snapshot.Members {
		if m.TrainerID == "slowpoke" {
			require.Equal(t, models.MemberKicked, m.State)
		}
	}
	require.Equal(t, StatusEveryoneReady, snapshot.StatusText)
}

func TestRejoinAfterGateKick(t *testing.T) {
	roster, store, clock := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)

	*clock = clock.Add(3 * time.Minute)
	_, err = roster.Snapshot(ctx, party.ID)
	require.NoError(t, err)

	// A fresh join revives the membership with a new gate window.
	member, err := roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)
	require.Equal(t, models.MemberJoined, member.State)
	require.NotNil(t, member.FriendGateDeadline)

	stored, err := store.GetMember(ctx, party.ID, "guest")
	require.NoError(t, err)
	require.Nil(t, stored.KickReason)
}

func TestKickMemberAuthorization(t *testing.T) {
	roster, store, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)

	require.ErrorIs(t, roster.KickMember(ctx, party.ID, "guest", "host"), ErrNotHost)
	require.ErrorIs(t, roster.KickMember(ctx, party.ID, "host", "host"), ErrInvalidTarget)
	require.ErrorIs(t, roster.KickMember(ctx, party.ID, "host", "stranger"), ErrNotMember)

	require.NoError(t, roster.KickMember(ctx, party.ID, "host", "guest"))
	member, err := store.GetMember(ctx, party.ID, "guest")
	require.NoError(t, err)
	require.Equal(t, models.MemberKicked, member.State)
	require.Equal(t, models.KickReasonHostKick, *member.KickReason)

	// A kicked member no longer holds a slot.
	require.ErrorIs(t, roster.KickMember(ctx, party.ID, "host", "guest"), ErrInvalidState)
}

func TestLeaveIsIdempotentOnTerminalState(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)

	require.NoError(t, roster.LeaveParty(ctx, party.ID, "guest"))
	require.ErrorIs(t, roster.LeaveParty(ctx, party.ID, "guest"), ErrInvalidState)
	require.ErrorIs(t, roster.LeaveParty(ctx, party.ID, "guest"), ErrInvalidState)
}

func TestHostLeaveClosesParty(t *testing.T) {
	roster, store, _ := newTestRoster(t, RosterConfig{HostLeavePolicy: config.HostLeaveClose})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)

	require.NoError(t, roster.LeaveParty(ctx, party.ID, "host"))

	got, err := store.GetParty(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, models.PartyClosed, got.Status)

	member, err := store.GetMember(ctx, party.ID, "guest")
	require.NoError(t, err)
	require.Equal(t, models.MemberLeft, member.State)
}

func TestHostLeavePromotesLongestTenuredReadyGuest(t *testing.T) {
	roster, store, clock := newTestRoster(t, RosterConfig{HostLeavePolicy: config.HostLeavePromote})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)

	_, err = roster.JoinParty(ctx, party.ID, "first")
	require.NoError(t, err)
	require.NoError(t, roster.ConfirmAddedHost(ctx, party.ID, "first"))
	require.NoError(t, roster.MarkReady(ctx, party.ID, "first"))

	*clock = clock.Add(10 * time.Second)
	_, err = roster.JoinParty(ctx, party.ID, "second")
	require.NoError(t, err)
	require.NoError(t, roster.ConfirmAddedHost(ctx, party.ID, "second"))
	require.NoError(t, roster.MarkReady(ctx, party.ID, "second"))

	require.NoError(t, roster.LeaveParty(ctx, party.ID, "host"))

	got, err := store.GetParty(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, "first", got.HostTrainerID)
	require.NotEqual(t, models.PartyClosed, got.Status)
}

func TestHostLeavePromoteFallsBackToClose(t *testing.T) {
	roster, store, _ := newTestRoster(t, RosterConfig{HostLeavePolicy: config.HostLeavePromote})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)

	// The only guest never got ready, so nobody can take over.
	require.NoError(t, roster.LeaveParty(ctx, party.ID, "host"))

	got, err := store.GetParty(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, models.PartyClosed, got.Status)
}

func TestClosePartyRequiresHost(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)

	require.ErrorIs(t, roster.CloseParty(ctx, party.ID, "guest"), ErrNotHost)
	require.NoError(t, roster.CloseParty(ctx, party.ID, "host"))
	require.ErrorIs(t, roster.CloseParty(ctx, party.ID, "host"), ErrInvalidState)
}

func TestKickedSlotCanBeRefilled(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 2, 0, "")
	require.NoError(t, err)

	_, err = roster.JoinParty(ctx, party.ID, "first")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "second")
	require.ErrorIs(t, err, ErrPartyFull)

	require.NoError(t, roster.KickMember(ctx, party.ID, "host", "first"))
	_, err = roster.JoinParty(ctx, party.ID, "second")
	require.NoError(t, err)
}

func TestSweepExpiredGates(t *testing.T) {
	roster, store, clock := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "one")
	require.NoError(t, err)
	_, err = roster.JoinParty(ctx, party.ID, "two")
	require.NoError(t, err)

	*clock = clock.Add(5 * time.Minute)

	kicked, err := roster.SweepExpiredGates(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, kicked)

	for _, trainerID := range []string{"one", "two"} {
		member, err := store.GetMember(ctx, party.ID, trainerID)
		require.NoError(t, err)
		require.Equal(t, models.MemberKicked, member.State)
		require.Equal(t, models.KickReasonGateTimeout, *member.KickReason)
	}
}

func TestStatusTextProgression(t *testing.T) {
	roster, _, _ := newTestRoster(t, RosterConfig{})
	ctx := context.Background()

	party, err := roster.CreateParty(ctx, "host", "zapdos", 5, 0, "")
	require.NoError(t, err)

	snapshot, err := roster.Snapshot(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, StatusEveryoneReady, snapshot.StatusText)

	_, err = roster.JoinParty(ctx, party.ID, "guest")
	require.NoError(t, err)
	snapshot, err = roster.Snapshot(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, StatusWaitingForReady, snapshot.StatusText)

	require.NoError(t, roster.ConfirmAddedHost(ctx, party.ID, "guest"))
	snapshot, err = roster.Snapshot(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, StatusLobbyFilling, snapshot.StatusText)

	require.NoError(t, roster.MarkReady(ctx, party.ID, "guest"))
	snapshot, err = roster.Snapshot(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, StatusEveryoneReady, snapshot.StatusText)

	require.NoError(t, roster.CloseParty(ctx, party.ID, "host"))
	snapshot, err = roster.Snapshot(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, snapshot.StatusText)
}
