package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"raid-service/internal/models"
)

// InMemoryStore implements every repository interface against process
// memory. It backs the coordinator tests and local development without
// a database.
type InMemoryStore struct {
	mu       sync.Mutex
	bosses   map[string]models.RaidBoss
	tickets  map[string]*models.QueueTicket
	parties  map[string]*models.Party
	members  map[string]map[string]*models.PartyMember
	messages map[string][]models.PartyMessage
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		bosses:   make(map[string]models.RaidBoss),
		tickets:  make(map[string]*models.QueueTicket),
		parties:  make(map[string]*models.Party),
		members:  make(map[string]map[string]*models.PartyMember),
		messages: make(map[string][]models.PartyMessage),
	}
}

var (
	_ BossRepository    = (*InMemoryStore)(nil)
	_ TicketRepository  = (*InMemoryStore)(nil)
	_ PartyRepository   = (*InMemoryStore)(nil)
	_ MessageRepository = (*InMemoryStore)(nil)
)

// SeedBoss registers a catalog entry.
func (s *InMemoryStore) SeedBoss(boss models.RaidBoss) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bosses[boss.ID] = boss
}

// ListBosses returns the catalog, optionally filtered by tier.
func (s *InMemoryStore) ListBosses(_ context.Context, tier string) ([]models.RaidBoss, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bosses []models.RaidBoss
	for _, b := range s.bosses {
		if tier == "" || b.Tier == tier {
			bosses = append(bosses, b)
		}
	}
	sort.Slice(bosses, func(i, j int) bool { return bosses[i].Name < bosses[j].Name })
	return bosses, nil
}

// GetBoss fetches a single catalog entry.
func (s *InMemoryStore) GetBoss(_ context.Context, bossID string) (models.RaidBoss, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	boss, ok := s.bosses[bossID]
	if !ok {
		return models.RaidBoss{}, ErrBossNotFound
	}
	return boss, nil
}

// CreateTicket inserts a waiting ticket, rejecting duplicates.
func (s *InMemoryStore) CreateTicket(_ context.Context, ticket models.QueueTicket) (models.QueueTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.TrainerID == ticket.TrainerID && t.BossID == ticket.BossID && t.Status == models.TicketWaiting {
			return models.QueueTicket{}, ErrDuplicateTicket
		}
	}
	ticket.Status = models.TicketWaiting
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	stored := ticket
	s.tickets[ticket.ID] = &stored
	return stored, nil
}

// GetTicket fetches a single ticket.
func (s *InMemoryStore) GetTicket(_ context.Context, ticketID string) (models.QueueTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return models.QueueTicket{}, ErrTicketNotFound
	}
	return *t, nil
}

// ListWaitingTickets returns waiting tickets for a boss, oldest first.
func (s *InMemoryStore) ListWaitingTickets(_ context.Context, bossID string) ([]models.QueueTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tickets []models.QueueTicket
	for _, t := range s.tickets {
		if t.BossID == bossID && t.Status == models.TicketWaiting {
			tickets = append(tickets, *t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
	return tickets, nil
}

// ListTicketsForTrainer returns a trainer's tickets, newest first.
func (s *InMemoryStore) ListTicketsForTrainer(_ context.Context, trainerID string) ([]models.QueueTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tickets []models.QueueTicket
	for _, t := range s.tickets {
		if t.TrainerID == trainerID {
			tickets = append(tickets, *t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })
	return tickets, nil
}

// UpdateTicketStatus transitions a ticket only from the expected status.
func (s *InMemoryStore) UpdateTicketStatus(_ context.Context, ticketID, from, to string, matchedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok || t.Status != from {
		return ErrStaleState
	}
	t.Status = to
	t.MatchedAt = matchedAt
	return nil
}

// ExpireBefore transitions one boss's stale waiting tickets to expired.
func (s *InMemoryStore) ExpireBefore(_ context.Context, bossID string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, t := range s.tickets {
		if t.BossID == bossID && t.Status == models.TicketWaiting && t.CreatedAt.Before(cutoff) {
			t.Status = models.TicketExpired
			count++
		}
	}
	return count, nil
}

// ListStaleTicketBosses returns bosses holding at least one stale waiting ticket.
func (s *InMemoryStore) ListStaleTicketBosses(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var bossIDs []string
	for _, t := range s.tickets {
		if t.Status == models.TicketWaiting && t.CreatedAt.Before(cutoff) {
			if _, ok := seen[t.BossID]; !ok {
				seen[t.BossID] = struct{}{}
				bossIDs = append(bossIDs, t.BossID)
			}
		}
	}
	return bossIDs, nil
}

// CreateParty creates a party and its initial members atomically.
func (s *InMemoryStore) CreateParty(_ context.Context, party models.Party, members []models.PartyMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if party.CreatedAt.IsZero() {
		party.CreatedAt = time.Now()
	}
	stored := party
	s.parties[party.ID] = &stored
	s.members[party.ID] = make(map[string]*models.PartyMember)
	for _, m := range members {
		if m.JoinedAt.IsZero() {
			m.JoinedAt = time.Now()
		}
		member := m
		s.members[party.ID][m.TrainerID] = &member
	}
	return nil
}

// GetParty fetches a single party.
func (s *InMemoryStore) GetParty(_ context.Context, partyID string) (models.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[partyID]
	if !ok {
		return models.Party{}, ErrPartyNotFound
	}
	return *p, nil
}

// ListOpenParties returns open and active parties with member counts.
func (s *InMemoryStore) ListOpenParties(_ context.Context) ([]models.PartySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var parties []models.PartySummary
	for id, p := range s.parties {
		if p.Status == models.PartyClosed {
			continue
		}
		count := 0
		for _, m := range s.members[id] {
			if m.Active() {
				count++
			}
		}
		parties = append(parties, models.PartySummary{Party: *p, MemberCount: count})
	}
	sort.Slice(parties, func(i, j int) bool { return parties[i].CreatedAt.After(parties[j].CreatedAt) })
	return parties, nil
}

// SetPartyStatus transitions a party only from the expected status.
func (s *InMemoryStore) SetPartyStatus(_ context.Context, partyID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[partyID]
	if !ok || p.Status != from {
		return ErrStaleState
	}
	p.Status = to
	return nil
}

// PromoteHost reassigns the host role to another active member.
func (s *InMemoryStore) PromoteHost(_ context.Context, partyID, trainerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[partyID]
	if !ok {
		return ErrPartyNotFound
	}
	m, ok := s.members[partyID][trainerID]
	if !ok || !m.Active() {
		return ErrStaleState
	}
	p.HostTrainerID = trainerID
	m.Role = models.RoleHost
	return nil
}

// ClosePartyCascade closes a party and marks non-terminal members left.
func (s *InMemoryStore) ClosePartyCascade(_ context.Context, partyID string, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[partyID]
	if !ok {
		return ErrPartyNotFound
	}
	if p.Status == models.PartyClosed {
		return ErrStaleState
	}
	p.Status = models.PartyClosed
	p.ClosedAt = &closedAt
	for _, m := range s.members[partyID] {
		if m.Active() {
			m.State = models.MemberLeft
		}
	}
	return nil
}

// AddMember inserts a membership record.
func (s *InMemoryStore) AddMember(_ context.Context, member models.PartyMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[member.PartyID]; !ok {
		s.members[member.PartyID] = make(map[string]*models.PartyMember)
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	stored := member
	s.members[member.PartyID][member.TrainerID] = &stored
	return nil
}

// GetMember fetches one membership record.
func (s *InMemoryStore) GetMember(_ context.Context, partyID, trainerID string) (models.PartyMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[partyID][trainerID]
	if !ok {
		return models.PartyMember{}, ErrMemberNotFound
	}
	return *m, nil
}

// ListMembers returns all membership records for a party, host first.
func (s *InMemoryStore) ListMembers(_ context.Context, partyID string) ([]models.PartyMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var members []models.PartyMember
	for _, m := range s.members[partyID] {
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Role != members[j].Role {
			return members[i].Role == models.RoleHost
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

// CountActiveMembers counts members occupying a capacity slot.
func (s *InMemoryStore) CountActiveMembers(_ context.Context, partyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.members[partyID] {
		if m.Active() {
			count++
		}
	}
	return count, nil
}

// SetMemberState transitions a member only from the expected state.
func (s *InMemoryStore) SetMemberState(_ context.Context, partyID, trainerID, from, to string, reason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[partyID][trainerID]
	if !ok || m.State != from {
		return ErrStaleState
	}
	m.State = to
	m.KickReason = reason
	return nil
}

// ConfirmGate records a friend-gate confirmation before the deadline.
func (s *InMemoryStore) ConfirmGate(_ context.Context, partyID, trainerID string, deadlineAfter time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[partyID][trainerID]
	if !ok || m.State != models.MemberJoined || m.FriendGateDeadline == nil || m.FriendGateDeadline.Before(deadlineAfter) {
		return ErrStaleState
	}
	m.GateConfirmed = true
	m.FriendGateDeadline = nil
	return nil
}

// KickExpiredMembers force-kicks joined members past their gate deadline.
func (s *InMemoryStore) KickExpiredMembers(_ context.Context, partyID string, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var trainerIDs []string
	reason := models.KickReasonGateTimeout
	for _, m := range s.members[partyID] {
		if m.State == models.MemberJoined && !m.GateConfirmed && m.FriendGateDeadline != nil && m.FriendGateDeadline.Before(now) {
			m.State = models.MemberKicked
			r := reason
			m.KickReason = &r
			trainerIDs = append(trainerIDs, m.TrainerID)
		}
	}
	return trainerIDs, nil
}

// ListGateExpiredParties returns parties holding at least one expired member.
func (s *InMemoryStore) ListGateExpiredParties(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var partyIDs []string
	for partyID, members := range s.members {
		for _, m := range members {
			if m.State == models.MemberJoined && !m.GateConfirmed && m.FriendGateDeadline != nil && m.FriendGateDeadline.Before(now) {
				if _, ok := seen[partyID]; !ok {
					seen[partyID] = struct{}{}
					partyIDs = append(partyIDs, partyID)
				}
			}
		}
	}
	return partyIDs, nil
}

// CreateMessage appends a message to the party log.
func (s *InMemoryStore) CreateMessage(_ context.Context, msg models.PartyMessage) (models.PartyMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	s.messages[msg.PartyID] = append(s.messages[msg.PartyID], msg)
	return msg, nil
}

// ListMessages returns the party log in insertion order.
func (s *InMemoryStore) ListMessages(_ context.Context, partyID string) ([]models.PartyMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]models.PartyMessage, len(s.messages[partyID]))
	copy(msgs, s.messages[partyID])
	return msgs, nil
}
