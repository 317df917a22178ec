package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"raid-service/internal/models"
	"raid-service/internal/observability"
	"raid-service/internal/repositories"
)

// MatcherConfig carries the matcher's tunable policies.
type MatcherConfig struct {
	MatchThreshold int
	TicketTTL      time.Duration
	GateDuration   time.Duration
}

// Matcher groups waiting queue tickets for a boss into a party once the
// match threshold is reached. All mutations of one boss's ticket pool
// are serialized through a per-boss lock, so two concurrent matches can
// never consume the same ticket.
type Matcher struct {
	tickets repositories.TicketRepository
	parties repositories.PartyRepository
	bosses  repositories.BossRepository
	chat    *ChatLog
	events  Events
	logger  *zap.Logger
	cfg     MatcherConfig
	locks   *keyedMutex
	now     func() time.Time
}

// NewMatcher constructs a Matcher.
func NewMatcher(tickets repositories.TicketRepository, parties repositories.PartyRepository, bosses repositories.BossRepository, chat *ChatLog, events Events, logger *zap.Logger, cfg MatcherConfig) *Matcher {
	return &Matcher{
		tickets: tickets,
		parties: parties,
		bosses:  bosses,
		chat:    chat,
		events:  events,
		logger:  logger,
		cfg:     cfg,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// SubmitTicket files a trainer's intent to be matched for a boss.
func (m *Matcher) SubmitTicket(ctx context.Context, trainerID, bossID string) (models.QueueTicket, error) {
	if _, err := m.bosses.GetBoss(ctx, bossID); err != nil {
		return models.QueueTicket{}, err
	}

	unlock := m.locks.lock(bossID)
	ticket, err := m.tickets.CreateTicket(ctx, models.QueueTicket{
		ID:        uuid.NewString(),
		TrainerID: trainerID,
		BossID:    bossID,
		CreatedAt: m.now(),
	})
	unlock()

	if errors.Is(err, repositories.ErrDuplicateTicket) {
		return models.QueueTicket{}, ErrDuplicateTicket
	}
	if err != nil {
		return models.QueueTicket{}, err
	}

	observability.IncTicketSubmitted()
	m.logger.Info("ticket submitted",
		zap.String("ticket_id", ticket.ID),
		zap.String("trainer_id", trainerID),
		zap.String("boss_id", bossID),
	)
	return ticket, nil
}

// CancelTicket withdraws a waiting ticket at its owner's request.
// Cancelling an already-terminal ticket returns ErrInvalidState, same
// as any retry.
func (m *Matcher) CancelTicket(ctx context.Context, ticketID, trainerID string) error {
	ticket, err := m.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.TrainerID != trainerID {
		return ErrNotOwner
	}

	unlock := m.locks.lock(ticket.BossID)
	err = m.tickets.UpdateTicketStatus(ctx, ticketID, models.TicketWaiting, models.TicketCancelled, nil)
	unlock()

	if errors.Is(err, repositories.ErrStaleState) {
		return ErrInvalidState
	}
	return err
}

// TryMatch forms a party from the oldest waiting tickets for a boss if
// the threshold is met. Returns nil when it is not. The oldest ticket's
// trainer becomes host; the rest enter joined state behind the friend
// gate. Consumed tickets transition to matched.
func (m *Matcher) TryMatch(ctx context.Context, bossID string) (*models.Party, error) {
	unlock := m.locks.lock(bossID)
	party, trainerIDs, err := m.matchLocked(ctx, bossID)
	unlock()
	if err != nil || party == nil {
		return nil, err
	}

	observability.IncQueueMatch(bossID)
	m.logger.Info("queue matched",
		zap.String("party_id", party.ID),
		zap.String("boss_id", bossID),
		zap.Int("members", len(trainerIDs)),
	)
	m.events.TicketMatched(ctx, party.ID, trainerIDs)
	if _, err := m.chat.PostSystemMessage(ctx, party.ID, "Party matched from the queue. Add the host and get ready."); err != nil {
		m.logger.Warn("system message failed", zap.String("party_id", party.ID), zap.Error(err))
	}
	return party, nil
}

func (m *Matcher) matchLocked(ctx context.Context, bossID string) (*models.Party, []string, error) {
	// Expired intents must never be matchable.
	if _, err := m.tickets.ExpireBefore(ctx, bossID, m.now().Add(-m.cfg.TicketTTL)); err != nil {
		return nil, nil, err
	}

	waiting, err := m.tickets.ListWaitingTickets(ctx, bossID)
	if err != nil {
		return nil, nil, err
	}
	if len(waiting) < m.cfg.MatchThreshold {
		return nil, nil, nil
	}

	matched := waiting[:m.cfg.MatchThreshold]
	host := matched[0]
	now := m.now()

	// Consume the tickets before the party exists. A stale ticket aborts
	// the match with no orphaned party; already-consumed tickets are
	// released back to the pool.
	matchedAt := now
	for i, t := range matched {
		if err := m.tickets.UpdateTicketStatus(ctx, t.ID, models.TicketWaiting, models.TicketMatched, &matchedAt); err != nil {
			m.releaseTickets(ctx, matched[:i])
			return nil, nil, err
		}
	}

	party := models.Party{
		ID:                 uuid.NewString(),
		BossID:             bossID,
		Mode:               models.PartyModeQueue,
		HostTrainerID:      host.TrainerID,
		MaxSize:            m.cfg.MatchThreshold,
		AdditionalTrainers: 0,
		Status:             models.PartyActive,
		CreatedAt:          now,
	}

	members := make([]models.PartyMember, 0, len(matched))
	trainerIDs := make([]string, 0, len(matched))
	for i, t := range matched {
		member := models.PartyMember{
			PartyID:   party.ID,
			TrainerID: t.TrainerID,
			Role:      models.RoleGuest,
			State:     models.MemberJoined,
			JoinedAt:  now,
		}
		if i == 0 {
			member.Role = models.RoleHost
			member.State = models.MemberReady
			member.GateConfirmed = true
		} else {
			deadline := now.Add(m.cfg.GateDuration)
			member.FriendGateDeadline = &deadline
		}
		members = append(members, member)
		trainerIDs = append(trainerIDs, t.TrainerID)
	}

	if err := m.parties.CreateParty(ctx, party, members); err != nil {
		m.releaseTickets(ctx, matched)
		return nil, nil, err
	}
	return &party, trainerIDs, nil
}

// releaseTickets returns consumed tickets to the waiting pool after an
// aborted match. Best effort; the caller still holds the boss lock.
func (m *Matcher) releaseTickets(ctx context.Context, tickets []models.QueueTicket) {
	for _, t := range tickets {
		if err := m.tickets.UpdateTicketStatus(ctx, t.ID, models.TicketMatched, models.TicketWaiting, nil); err != nil {
			m.logger.Warn("ticket release failed", zap.String("ticket_id", t.ID), zap.Error(err))
		}
	}
}

// MyTickets returns a trainer's queue tickets, newest first.
func (m *Matcher) MyTickets(ctx context.Context, trainerID string) ([]models.QueueTicket, error) {
	return m.tickets.ListTicketsForTrainer(ctx, trainerID)
}

// ExpireStaleTickets transitions waiting tickets older than the TTL to
// expired, taking each boss's lock in turn so expiry never races a
// match on that boss. Used by the proactive sweep; matching also
// applies it lazily.
func (m *Matcher) ExpireStaleTickets(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-m.cfg.TicketTTL)
	bossIDs, err := m.tickets.ListStaleTicketBosses(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, bossID := range bossIDs {
		unlock := m.locks.lock(bossID)
		count, err := m.tickets.ExpireBefore(ctx, bossID, cutoff)
		unlock()
		if err != nil {
			return total, err
		}
		total += count
	}
	if total > 0 {
		observability.AddTicketsExpired(total)
		m.logger.Info("stale tickets expired", zap.Int64("count", total))
	}
	return total, nil
}
