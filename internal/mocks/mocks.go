package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"raid-service/internal/coordinator"
	"raid-service/internal/models"
)

type RosterServiceMock struct {
	mock.Mock
}

func (m *RosterServiceMock) CreateParty(ctx context.Context, hostID, bossID string, maxSize, additionalTrainers int, mode string) (models.Party, error) {
	args := m.Called(ctx, hostID, bossID, maxSize, additionalTrainers, mode)
	var party models.Party
	if val := args.Get(0); val != nil {
		party = val.(models.Party)
	}
	return party, args.Error(1)
}

func (m *RosterServiceMock) JoinParty(ctx context.Context, partyID, trainerID string) (models.PartyMember, error) {
	args := m.Called(ctx, partyID, trainerID)
	var member models.PartyMember
	if val := args.Get(0); val != nil {
		member = val.(models.PartyMember)
	}
	return member, args.Error(1)
}

func (m *RosterServiceMock) ConfirmAddedHost(ctx context.Context, partyID, trainerID string) error {
	args := m.Called(ctx, partyID, trainerID)
	return args.Error(0)
}

func (m *RosterServiceMock) MarkReady(ctx context.Context, partyID, trainerID string) error {
	args := m.Called(ctx, partyID, trainerID)
	return args.Error(0)
}

func (m *RosterServiceMock) KickMember(ctx context.Context, partyID, actingTrainerID, targetTrainerID string) error {
	args := m.Called(ctx, partyID, actingTrainerID, targetTrainerID)
	return args.Error(0)
}

func (m *RosterServiceMock) LeaveParty(ctx context.Context, partyID, trainerID string) error {
	args := m.Called(ctx, partyID, trainerID)
	return args.Error(0)
}

func (m *RosterServiceMock) CloseParty(ctx context.Context, partyID, actingTrainerID string) error {
	args := m.Called(ctx, partyID, actingTrainerID)
	return args.Error(0)
}

func (m *RosterServiceMock) Snapshot(ctx context.Context, partyID string) (coordinator.PartySnapshot, error) {
	args := m.Called(ctx, partyID)
	var snapshot coordinator.PartySnapshot
	if val := args.Get(0); val != nil {
		snapshot = val.(coordinator.PartySnapshot)
	}
	return snapshot, args.Error(1)
}

func (m *RosterServiceMock) ListOpenParties(ctx context.Context) ([]models.PartySummary, error) {
	args := m.Called(ctx)
	var parties []models.PartySummary
	if val := args.Get(0); val != nil {
		parties = val.([]models.PartySummary)
	}
	return parties, args.Error(1)
}

type MatcherServiceMock struct {
	mock.Mock
}

func (m *MatcherServiceMock) SubmitTicket(ctx context.Context, trainerID, bossID string) (models.QueueTicket, error) {
	args := m.Called(ctx, trainerID, bossID)
	var ticket models.QueueTicket
	if val := args.Get(0); val != nil {
		ticket = val.(models.QueueTicket)
	}
	return ticket, args.Error(1)
}

func (m *MatcherServiceMock) CancelTicket(ctx context.Context, ticketID, trainerID string) error {
	args := m.Called(ctx, ticketID, trainerID)
	return args.Error(0)
}

func (m *MatcherServiceMock) TryMatch(ctx context.Context, bossID string) (*models.Party, error) {
	args := m.Called(ctx, bossID)
	var party *models.Party
	if val := args.Get(0); val != nil {
		party = val.(*models.Party)
	}
	return party, args.Error(1)
}

func (m *MatcherServiceMock) MyTickets(ctx context.Context, trainerID string) ([]models.QueueTicket, error) {
	args := m.Called(ctx, trainerID)
	var tickets []models.QueueTicket
	if val := args.Get(0); val != nil {
		tickets = val.([]models.QueueTicket)
	}
	return tickets, args.Error(1)
}

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) PostMessage(ctx context.Context, partyID, senderID, text string) (models.PartyMessage, error) {
	args := m.Called(ctx, partyID, senderID, text)
	var msg models.PartyMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.PartyMessage)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) ListMessages(ctx context.Context, partyID, trainerID string) ([]models.PartyMessage, error) {
	args := m.Called(ctx, partyID, trainerID)
	var msgs []models.PartyMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.PartyMessage)
	}
	return msgs, args.Error(1)
}

type BossRepositoryMock struct {
	mock.Mock
}

func (m *BossRepositoryMock) ListBosses(ctx context.Context, tier string) ([]models.RaidBoss, error) {
	args := m.Called(ctx, tier)
	var bosses []models.RaidBoss
	if val := args.Get(0); val != nil {
		bosses = val.([]models.RaidBoss)
	}
	return bosses, args.Error(1)
}

func (m *BossRepositoryMock) GetBoss(ctx context.Context, bossID string) (models.RaidBoss, error) {
	args := m.Called(ctx, bossID)
	var boss models.RaidBoss
	if val := args.Get(0); val != nil {
		boss = val.(models.RaidBoss)
	}
	return boss, args.Error(1)
}
