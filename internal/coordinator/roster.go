package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"raid-service/internal/config"
	"raid-service/internal/models"
	"raid-service/internal/observability"
	"raid-service/internal/repositories"
)

// Status summary texts shown in the lobby, derived from member states.
const (
	StatusLobbyFilling    = "Lobby filling."
	StatusWaitingForReady = "Waiting for everyone to add host and get ready."
	StatusEveryoneReady   = "Everyone is ready. Host can start."
	StatusClosed          = "Party closed."
)

// RosterConfig carries the roster's tunable policies.
type RosterConfig struct {
	GateDuration    time.Duration
	HostLeavePolicy string
}

// Roster is the authoritative state machine for party membership. All
// mutations of one party are serialized through a per-party lock; the
// friend-gate expiry sweep runs lazily inside that lock before any
// state-dependent check.
type Roster struct {
	parties repositories.PartyRepository
	bosses  repositories.BossRepository
	chat    *ChatLog
	events  Events
	logger  *zap.Logger
	cfg     RosterConfig
	locks   *keyedMutex
	now     func() time.Time
}

// NewRoster constructs a Roster.
func NewRoster(parties repositories.PartyRepository, bosses repositories.BossRepository, chat *ChatLog, events Events, logger *zap.Logger, cfg RosterConfig) *Roster {
	return &Roster{
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

// PartySnapshot is a consistent read of one party's roster.
type PartySnapshot struct {
	Party      models.Party         `json:"party"`
	Members    []models.PartyMember `json:"members"`
	StatusText string               `json:"status_text"`
}

// CreateParty creates a live party with the caller as host. The host is
// exempt from the friend gate and starts ready.
func (r *Roster) CreateParty(ctx context.Context, hostID, bossID string, maxSize, additionalTrainers int, mode string) (models.Party, error) {
	if maxSize < models.MinPartySize || maxSize > models.MaxPartySize {
		return models.Party{}, ErrInvalidCapacity
	}
	if additionalTrainers < 0 || additionalTrainers > models.MaxAdditionalTrainers {
		return models.Party{}, ErrInvalidCapacity
	}
	if mode == "" {
		mode = models.PartyModeLive
	}

	if _, err := r.bosses.GetBoss(ctx, bossID); err != nil {
		return models.Party{}, err
	}

	party := models.Party{
		ID:                 uuid.NewString(),
		BossID:             bossID,
		Mode:               mode,
		HostTrainerID:      hostID,
		MaxSize:            maxSize,
		AdditionalTrainers: additionalTrainers,
		Status:             models.PartyOpen,
		CreatedAt:          r.now(),
	}
	host := models.PartyMember{
		PartyID:       party.ID,
		TrainerID:     hostID,
		Role:          models.RoleHost,
		State:         models.MemberReady,
		GateConfirmed: true,
		JoinedAt:      r.now(),
	}
	if err := r.parties.CreateParty(ctx, party, []models.PartyMember{host}); err != nil {
		return models.Party{}, err
	}

	observability.IncPartyCreated(mode)
	r.logger.Info("party created",
		zap.String("party_id", party.ID),
		zap.String("boss_id", bossID),
		zap.String("host", hostID),
		zap.Int("max_size", maxSize),
	)
	return party, nil
}

// JoinParty admits a trainer as a guest in joined state and starts their
// friend-gate countdown.
func (r *Roster) JoinParty(ctx context.Context, partyID, trainerID string) (models.PartyMember, error) {
	unlock := r.locks.lock(partyID)
	member, expired, err := r.joinLocked(ctx, partyID, trainerID)
	unlock()

	r.reportGateKicks(ctx, partyID, expired)
	if err != nil {
		return models.PartyMember{}, err
	}

	r.events.MemberJoined(ctx, partyID, trainerID)
	r.systemMessage(ctx, partyID, fmt.Sprintf("%s joined the lobby.", trainerID))
	return member, nil
}

func (r *Roster) joinLocked(ctx context.Context, partyID, trainerID string) (models.PartyMember, []string, error) {
	expired, err := r.parties.KickExpiredMembers(ctx, partyID, r.now())
	if err != nil {
		return models.PartyMember{}, nil, err
	}

	party, err := r.parties.GetParty(ctx, partyID)
	if err != nil {
		return models.PartyMember{}, expired, err
	}
	if party.Status == models.PartyClosed {
		return models.PartyMember{}, expired, ErrPartyClosed
	}

	existing, err := r.parties.GetMember(ctx, partyID, trainerID)
	switch {
	case err == nil && existing.Active():
		return models.PartyMember{}, expired, ErrAlreadyMember
	case err != nil && !errors.Is(err, repositories.ErrMemberNotFound):
		return models.PartyMember{}, expired, err
	}

	active, err := r.parties.CountActiveMembers(ctx, partyID)
	if err != nil {
		return models.PartyMember{}, expired, err
	}
	if active+party.AdditionalTrainers >= party.MaxSize {
		return models.PartyMember{}, expired, ErrPartyFull
	}

	deadline := r.now().Add(r.cfg.GateDuration)
	member := models.PartyMember{
		PartyID:            partyID,
		TrainerID:          trainerID,
		Role:               models.RoleGuest,
		State:              models.MemberJoined,
		JoinedAt:           r.now(),
		FriendGateDeadline: &deadline,
	}
	if err := r.parties.AddMember(ctx, member); err != nil {
		return models.PartyMember{}, expired, err
	}

	if party.Status == models.PartyOpen {
		if err := r.parties.SetPartyStatus(ctx, partyID, models.PartyOpen, models.PartyActive); err != nil &&
			!errors.Is(err, repositories.ErrStaleState) {
			return models.PartyMember{}, expired, err
		}
	}
	return member, expired, nil
}

// ConfirmAddedHost records that the guest added the host in game. After
// the deadline this fails with ErrGateExpired and the member is kicked
// with the gate_timeout reason.
func (r *Roster) ConfirmAddedHost(ctx context.Context, partyID, trainerID string) error {
	unlock := r.locks.lock(partyID)
	kicked, err := r.confirmLocked(ctx, partyID, trainerID)
	unlock()

	r.reportGateKicks(ctx, partyID, kicked)
	return err
}

func (r *Roster) confirmLocked(ctx context.Context, partyID, trainerID string) ([]string, error) {
	member, err := r.parties.GetMember(ctx, partyID, trainerID)
	if errors.Is(err, repositories.ErrMemberNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, err
	}

	switch {
	case member.Role == models.RoleHost:
		return nil, ErrInvalidState
	case member.State == models.MemberKicked && member.KickReason != nil && *member.KickReason == models.KickReasonGateTimeout:
		return nil, ErrGateExpired
	case member.State != models.MemberJoined:
		return nil, ErrInvalidState
	}

	now := r.now()
	if member.FriendGateDeadline != nil && member.FriendGateDeadline.Before(now) {
		kicked, err := r.parties.KickExpiredMembers(ctx, partyID, now)
		if err != nil {
			return nil, err
		}
		return kicked, ErrGateExpired
	}

	if err := r.parties.ConfirmGate(ctx, partyID, trainerID, now); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, ErrGateExpired
		}
		return nil, err
	}
	return nil, nil
}

// MarkReady transitions a joined member who completed the friend gate
// to ready.
func (r *Roster) MarkReady(ctx context.Context, partyID, trainerID string) error {
	unlock := r.locks.lock(partyID)
	expired, err := r.readyLocked(ctx, partyID, trainerID)
	unlock()

	r.reportGateKicks(ctx, partyID, expired)
	if err != nil {
		return err
	}

	r.events.MemberReady(ctx, partyID, trainerID)
	r.systemMessage(ctx, partyID, fmt.Sprintf("%s is ready.", trainerID))
	return nil
}

func (r *Roster) readyLocked(ctx context.Context, partyID, trainerID string) ([]string, error) {
	expired, err := r.parties.KickExpiredMembers(ctx, partyID, r.now())
	if err != nil {
		return nil, err
	}

	member, err := r.parties.GetMember(ctx, partyID, trainerID)
	if errors.Is(err, repositories.ErrMemberNotFound) {
		return expired, ErrNotMember
	}
	if err != nil {
		return expired, err
	}
	if member.State != models.MemberJoined || !member.GateConfirmed {
		return expired, ErrInvalidState
	}

	if err := r.parties.SetMemberState(ctx, partyID, trainerID, models.MemberJoined, models.MemberReady, nil); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return expired, ErrInvalidState
		}
		return expired, err
	}
	return expired, nil
}

// KickMember removes a guest at the host's request.
func (r *Roster) KickMember(ctx context.Context, partyID, actingTrainerID, targetTrainerID string) error {
	unlock := r.locks.lock(partyID)
	err := r.kickLocked(ctx, partyID, actingTrainerID, targetTrainerID)
	unlock()
	if err != nil {
		return err
	}

	observability.IncMemberKicked(models.KickReasonHostKick)
	r.events.MemberKicked(ctx, partyID, targetTrainerID, models.KickReasonHostKick)
	r.systemMessage(ctx, partyID, fmt.Sprintf("%s was removed by the host.", targetTrainerID))
	return nil
}

func (r *Roster) kickLocked(ctx context.Context, partyID, actingTrainerID, targetTrainerID string) error {
	party, err := r.parties.GetParty(ctx, partyID)
	if err != nil {
		return err
	}
	if party.HostTrainerID != actingTrainerID {
		return ErrNotHost
	}
	if targetTrainerID == party.HostTrainerID {
		return ErrInvalidTarget
	}

	target, err := r.parties.GetMember(ctx, partyID, targetTrainerID)
	if errors.Is(err, repositories.ErrMemberNotFound) {
		return ErrNotMember
	}
	if err != nil {
		return err
	}
	if !target.Active() {
		return ErrInvalidState
	}

	reason := models.KickReasonHostKick
	if err := r.parties.SetMemberState(ctx, partyID, targetTrainerID, target.State, models.MemberKicked, &reason); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return ErrInvalidState
		}
		return err
	}
	return nil
}

// LeaveParty transitions the caller to left. A departing host triggers
// the configured host-leave policy.
func (r *Roster) LeaveParty(ctx context.Context, partyID, trainerID string) error {
	unlock := r.locks.lock(partyID)
	outcome, err := r.leaveLocked(ctx, partyID, trainerID)
	unlock()
	if err != nil {
		return err
	}

	r.systemMessage(ctx, partyID, fmt.Sprintf("%s left the party.", trainerID))
	switch {
	case outcome.closed:
		r.events.PartyClosed(ctx, partyID)
		r.systemMessage(ctx, partyID, StatusClosed)
	case outcome.promotedHost != "":
		r.systemMessage(ctx, partyID, fmt.Sprintf("%s is now the host.", outcome.promotedHost))
	}
	return nil
}

type leaveOutcome struct {
	closed       bool
	promotedHost string
}

func (r *Roster) leaveLocked(ctx context.Context, partyID, trainerID string) (leaveOutcome, error) {
	member, err := r.parties.GetMember(ctx, partyID, trainerID)
	if errors.Is(err, repositories.ErrMemberNotFound) {
		return leaveOutcome{}, ErrNotMember
	}
	if err != nil {
		return leaveOutcome{}, err
	}
	if !member.Active() {
		// Idempotent on terminal state: a second leave is the same
		// rejection as the first, never a different error.
		return leaveOutcome{}, ErrInvalidState
	}

	if err := r.parties.SetMemberState(ctx, partyID, trainerID, member.State, models.MemberLeft, nil); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return leaveOutcome{}, ErrInvalidState
		}
		return leaveOutcome{}, err
	}

	if member.Role != models.RoleHost {
		return leaveOutcome{}, nil
	}

	if r.cfg.HostLeavePolicy == config.HostLeavePromote {
		successor, err := r.pickSuccessor(ctx, partyID)
		if err != nil {
			return leaveOutcome{}, err
		}
		if successor != "" {
			if err := r.parties.PromoteHost(ctx, partyID, successor); err != nil {
				return leaveOutcome{}, err
			}
			r.logger.Info("host promoted", zap.String("party_id", partyID), zap.String("trainer_id", successor))
			return leaveOutcome{promotedHost: successor}, nil
		}
	}

	if err := r.parties.ClosePartyCascade(ctx, partyID, r.now()); err != nil {
		return leaveOutcome{}, err
	}
	return leaveOutcome{closed: true}, nil
}

// pickSuccessor returns the longest-tenured ready guest, or "".
func (r *Roster) pickSuccessor(ctx context.Context, partyID string) (string, error) {
	members, err := r.parties.ListMembers(ctx, partyID)
	if err != nil {
		return "", err
	}
	successor := ""
	var earliest time.Time
	for _, m := range members {
		if m.Role != models.RoleGuest || m.State != models.MemberReady {
			continue
		}
		if successor == "" || m.JoinedAt.Before(earliest) {
			successor = m.TrainerID
			earliest = m.JoinedAt
		}
	}
	return successor, nil
}

// CloseParty closes the party at the host's request, cascading all
// non-terminal members to left.
func (r *Roster) CloseParty(ctx context.Context, partyID, actingTrainerID string) error {
	unlock := r.locks.lock(partyID)
	err := r.closeLocked(ctx, partyID, actingTrainerID)
	unlock()
	if err != nil {
		return err
	}

	r.events.PartyClosed(ctx, partyID)
	r.systemMessage(ctx, partyID, StatusClosed)
	return nil
}

func (r *Roster) closeLocked(ctx context.Context, partyID, actingTrainerID string) error {
	party, err := r.parties.GetParty(ctx, partyID)
	if err != nil {
		return err
	}
	if party.HostTrainerID != actingTrainerID {
		return ErrNotHost
	}
	if party.Status == models.PartyClosed {
		return ErrInvalidState
	}

	if err := r.parties.ClosePartyCascade(ctx, partyID, r.now()); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return ErrInvalidState
		}
		return err
	}
	return nil
}

// Snapshot returns a consistent view of the party after applying the
// lazy gate sweep.
func (r *Roster) Snapshot(ctx context.Context, partyID string) (PartySnapshot, error) {
	unlock := r.locks.lock(partyID)
	expired, err := r.parties.KickExpiredMembers(ctx, partyID, r.now())
	if err != nil {
		unlock()
		return PartySnapshot{}, err
	}
	party, err := r.parties.GetParty(ctx, partyID)
	if err != nil {
		unlock()
		return PartySnapshot{}, err
	}
	members, err := r.parties.ListMembers(ctx, partyID)
	unlock()
	if err != nil {
		return PartySnapshot{}, err
	}

	r.reportGateKicks(ctx, partyID, expired)
	return PartySnapshot{
		Party:      party,
		Members:    members,
		StatusText: statusText(party, members),
	}, nil
}

// ListOpenParties returns open and active parties for the browse screen.
func (r *Roster) ListOpenParties(ctx context.Context) ([]models.PartySummary, error) {
	return r.parties.ListOpenParties(ctx)
}

// SweepExpiredGates proactively applies the gate-timeout kick across all
// parties. The lazy per-operation sweep keeps the invariant on its own;
// this just surfaces kicks to idle lobbies sooner.
func (r *Roster) SweepExpiredGates(ctx context.Context) (int, error) {
	partyIDs, err := r.parties.ListGateExpiredParties(ctx, r.now())
	if err != nil {
		return 0, err
	}

	total := 0
	for _, partyID := range partyIDs {
		unlock := r.locks.lock(partyID)
		kicked, err := r.parties.KickExpiredMembers(ctx, partyID, r.now())
		unlock()
		if err != nil {
			return total, err
		}
		total += len(kicked)
		r.reportGateKicks(ctx, partyID, kicked)
	}
	return total, nil
}

// statusText derives the lobby summary line from member states.
func statusText(party models.Party, members []models.PartyMember) string {
	if party.Status == models.PartyClosed {
		return StatusClosed
	}

	anyJoined := false
	anyUnconfirmed := false
	for _, m := range members {
		if m.State == models.MemberJoined {
			anyJoined = true
			if !m.GateConfirmed {
				anyUnconfirmed = true
			}
		}
	}
	if anyUnconfirmed {
		return StatusWaitingForReady
	}
	if anyJoined {
		return StatusLobbyFilling
	}
	return StatusEveryoneReady
}

// reportGateKicks emits events and system messages for members removed
// by a gate sweep. Runs outside the party lock.
func (r *Roster) reportGateKicks(ctx context.Context, partyID string, trainerIDs []string) {
	for _, trainerID := range trainerIDs {
		observability.IncMemberKicked(models.KickReasonGateTimeout)
		r.logger.Info("friend gate expired",
			zap.String("party_id", partyID),
			zap.String("trainer_id", trainerID),
		)
		r.events.MemberKicked(ctx, partyID, trainerID, models.KickReasonGateTimeout)
		r.systemMessage(ctx, partyID, fmt.Sprintf("%s took too long to add the host and was removed.", trainerID))
	}
}

func (r *Roster) systemMessage(ctx context.Context, partyID, text string) {
	if _, err := r.chat.PostSystemMessage(ctx, partyID, text); err != nil {
		r.logger.Warn("system message failed", zap.String("party_id", partyID), zap.Error(err))
	}
}
