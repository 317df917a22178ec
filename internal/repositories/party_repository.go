package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"raid-service/internal/models"
)

var (
	ErrPartyNotFound  = errors.New("party not found")
	ErrMemberNotFound = errors.New("member not found")
)

// PartyRepository abstracts party and membership persistence.
type PartyRepository interface {
	CreateParty(ctx context.Context, party models.Party, members []models.PartyMember) error
	GetParty(ctx context.Context, partyID string) (models.Party, error)
	ListOpenParties(ctx context.Context) ([]models.PartySummary, error)
	SetPartyStatus(ctx context.Context, partyID, from, to string) error
	PromoteHost(ctx context.Context, partyID, trainerID string) error
	ClosePartyCascade(ctx context.Context, partyID string, closedAt time.Time) error

	AddMember(ctx context.Context, member models.PartyMember) error
	GetMember(ctx context.Context, partyID, trainerID string) (models.PartyMember, error)
	ListMembers(ctx context.Context, partyID string) ([]models.PartyMember, error)
	CountActiveMembers(ctx context.Context, partyID string) (int, error)
	SetMemberState(ctx context.Context, partyID, trainerID, from, to string, reason *string) error
	ConfirmGate(ctx context.Context, partyID, trainerID string, deadlineAfter time.Time) error
	KickExpiredMembers(ctx context.Context, partyID string, now time.Time) ([]string, error)
	ListGateExpiredParties(ctx context.Context, now time.Time) ([]string, error)
}

// PartyRepo is a sqlx implementation of PartyRepository.
type PartyRepo struct {
	db *sqlx.DB
}

// NewPartyRepo constructs a PartyRepo.
func NewPartyRepo(db *sqlx.DB) *PartyRepo {
	return &PartyRepo{db: db}
}

// CreateParty creates a party and its initial members atomically.
func (r *PartyRepo) CreateParty(ctx context.Context, party models.Party, members []models.PartyMember) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO parties (id, boss_id, mode, host_trainer_id, max_size, additional_trainers, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		party.ID, party.BossID, party.Mode, party.HostTrainerID, party.MaxSize, party.AdditionalTrainers, party.Status,
	); err != nil {
		return err
	}

	for _, m := range members {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO party_members (party_id, trainer_id, role, state, gate_confirmed, friend_gate_deadline)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			m.PartyID, m.TrainerID, m.Role, m.State, m.GateConfirmed, m.FriendGateDeadline,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetParty fetches a single party.
func (r *PartyRepo) GetParty(ctx context.Context, partyID string) (models.Party, error) {
	var party models.Party
	err := r.db.GetContext(ctx, &party, `SELECT * FROM parties WHERE id=$1`, partyID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Party{}, ErrPartyNotFound
	}
	return party, err
}

// ListOpenParties returns open and active parties with their live member counts.
func (r *PartyRepo) ListOpenParties(ctx context.Context) ([]models.PartySummary, error) {
	var parties []models.PartySummary
	err := r.db.SelectContext(ctx, &parties,
		`SELECT p.*, COUNT(m.trainer_id) FILTER (WHERE m.state IN ('joined', 'ready')) AS member_count
         FROM parties p
         LEFT JOIN party_members m ON m.party_id = p.id
         WHERE p.status IN ('open', 'active')
         GROUP BY p.id
         ORDER BY p.created_at DESC`)
	return parties, err
}

// SetPartyStatus transitions a party only from the expected status.
func (r *PartyRepo) SetPartyStatus(ctx context.Context, partyID, from, to string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE parties SET status=$1 WHERE id=$2 AND status=$3`, to, partyID, from)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// PromoteHost reassigns the host role to another active member.
func (r *PartyRepo) PromoteHost(ctx context.Context, partyID, trainerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`UPDATE parties SET host_trainer_id=$1 WHERE id=$2`, trainerID, partyID); err != nil {
		return err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`UPDATE party_members SET role='host' WHERE party_id=$1 AND trainer_id=$2 AND state IN ('joined', 'ready')`,
		partyID, trainerID)
	if err != nil {
		return err
	}
	if err = requireRows(res); err != nil {
		return err
	}
	return tx.Commit()
}

// ClosePartyCascade closes a party and marks all non-terminal members left.
func (r *PartyRepo) ClosePartyCascade(ctx context.Context, partyID string, closedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`UPDATE parties SET status='closed', closed_at=$1 WHERE id=$2 AND status <> 'closed'`,
		closedAt, partyID)
	if err != nil {
		return err
	}
	if err = requireRows(res); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE party_members SET state='left' WHERE party_id=$1 AND state IN ('joined', 'ready')`,
		partyID); err != nil {
		return err
	}
	return tx.Commit()
}

// AddMember inserts a membership record. A terminal row for the same
// pair is revived in place, preserving the one-row-per-pair invariant
// when a trainer rejoins.
func (r *PartyRepo) AddMember(ctx context.Context, member models.PartyMember) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO party_members (party_id, trainer_id, role, state, gate_confirmed, joined_at, friend_gate_deadline)
         VALUES ($1, $2, $3, $4, $5, NOW(), $6)
         ON CONFLICT (party_id, trainer_id) DO UPDATE
         SET role=EXCLUDED.role, state=EXCLUDED.state, kick_reason=NULL,
             gate_confirmed=EXCLUDED.gate_confirmed, joined_at=EXCLUDED.joined_at,
             friend_gate_deadline=EXCLUDED.friend_gate_deadline
         WHERE party_members.state IN ('left', 'kicked')`,
		member.PartyID, member.TrainerID, member.Role, member.State, member.GateConfirmed, member.FriendGateDeadline)
	return err
}

// GetMember fetches one membership record.
func (r *PartyRepo) GetMember(ctx context.Context, partyID, trainerID string) (models.PartyMember, error) {
	var member models.PartyMember
	err := r.db.GetContext(ctx, &member,
		`SELECT * FROM party_members WHERE party_id=$1 AND trainer_id=$2`, partyID, trainerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PartyMember{}, ErrMemberNotFound
	}
	return member, err
}

// ListMembers returns all membership records for a party, host first.
func (r *PartyRepo) ListMembers(ctx context.Context, partyID string) ([]models.PartyMember, error) {
	var members []models.PartyMember
	err := r.db.SelectContext(ctx, &members,
		`SELECT * FROM party_members WHERE party_id=$1 ORDER BY role DESC, joined_at ASC`, partyID)
	return members, err
}

// CountActiveMembers counts members currently occupying a capacity slot.
func (r *PartyRepo) CountActiveMembers(ctx context.Context, partyID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM party_members WHERE party_id=$1 AND state IN ('joined', 'ready')`, partyID)
	return count, err
}

// SetMemberState transitions a member only from the expected state.
func (r *PartyRepo) SetMemberState(ctx context.Context, partyID, trainerID, from, to string, reason *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE party_members SET state=$1, kick_reason=$2 WHERE party_id=$3 AND trainer_id=$4 AND state=$5`,
		to, reason, partyID, trainerID, from)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// ConfirmGate records a successful friend-gate confirmation, provided the
// member is still joined and the deadline has not passed.
func (r *PartyRepo) ConfirmGate(ctx context.Context, partyID, trainerID string, deadlineAfter time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE party_members SET gate_confirmed=TRUE, friend_gate_deadline=NULL
         WHERE party_id=$1 AND trainer_id=$2 AND state='joined' AND friend_gate_deadline >= $3`,
		partyID, trainerID, deadlineAfter)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// KickExpiredMembers force-kicks joined members whose gate deadline passed,
// returning the affected trainer ids.
func (r *PartyRepo) KickExpiredMembers(ctx context.Context, partyID string, now time.Time) ([]string, error) {
	var trainerIDs []string
	err := r.db.SelectContext(ctx, &trainerIDs,
		`UPDATE party_members SET state='kicked', kick_reason='gate_timeout'
         WHERE party_id=$1 AND state='joined' AND gate_confirmed=FALSE AND friend_gate_deadline < $2
         RETURNING trainer_id`,
		partyID, now)
	return trainerIDs, err
}

// ListGateExpiredParties returns ids of parties holding at least one member
// past their gate deadline. Used by the proactive sweep.
func (r *PartyRepo) ListGateExpiredParties(ctx context.Context, now time.Time) ([]string, error) {
	var partyIDs []string
	err := r.db.SelectContext(ctx, &partyIDs,
		`SELECT DISTINCT party_id FROM party_members
         WHERE state='joined' AND gate_confirmed=FALSE AND friend_gate_deadline < $1`,
		now)
	return partyIDs, err
}

func requireRows(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrStaleState
	}
	return nil
}
