package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"yourloops-dashboard/internal/domain"

	"github.com/lib/pq"
)

type PostgresMembersRepository struct {
	db *sql.DB
}

func NewPostgresMembersRepository(db *sql.DB) *PostgresMembersRepository {
	return &PostgresMembersRepository{db: db}
}

var _ MembersRepository = (*PostgresMembersRepository)(nil)

const memberColumns = `
	team_id,
	user_id,
	email,
	role,
	status,
	invitation_id,
	profile,
	alarms,
	monitoring,
	unread_messages,
	id_verified`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*domain.TeamMember, error) {
	var (
		m                           domain.TeamMember
		role, status                string
		profile, alarms, monitoring []byte
	)
	if err := row.Scan(
		&m.TeamID,
		&m.UserID,
		&m.Email,
		&role,
		&status,
		&m.InvitationID,
		&profile,
		&alarms,
		&monitoring,
		&m.UnreadMessages,
		&m.IDVerified,
	); err != nil {
		return nil, err
	}
	m.Role = domain.TeamMemberRole(role)
	m.Status = domain.UserInvitationStatus(status)
	if len(profile) > 0 {
		m.Profile = &domain.MemberProfile{}
		if err := scanJSON(profile, m.Profile); err != nil {
			return nil, err
		}
	}
	if len(alarms) > 0 {
		m.Alarms = &domain.Alarm{}
		if err := scanJSON(alarms, m.Alarms); err != nil {
			return nil, err
		}
	}
	if len(monitoring) > 0 {
		m.Monitoring = &domain.Monitoring{}
		if err := scanJSON(monitoring, m.Monitoring); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (r *PostgresMembersRepository) queryMembers(ctx context.Context, query string, args ...any) ([]domain.TeamMember, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []domain.TeamMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func (r *PostgresMembersRepository) GetMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error) {
	query := `SELECT` + memberColumns + `
		FROM team_members
		WHERE team_id = $1 AND user_id = $2`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, teamID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("member %s of team %s: %w", userID, teamID, domain.ErrNotTeamMember)
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (r *PostgresMembersRepository) ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	query := `SELECT` + memberColumns + `
		FROM team_members
		WHERE team_id = $1
		ORDER BY role, email`
	return r.queryMembers(ctx, query, teamID)
}

// ListPatientMembers returns the patient rows of every team in teamIDs.
func (r *PostgresMembersRepository) ListPatientMembers(ctx context.Context, teamIDs []string) ([]domain.TeamMember, error) {
	if len(teamIDs) == 0 {
		return []domain.TeamMember{}, nil
	}
	query := `SELECT` + memberColumns + `
		FROM team_members
		WHERE team_id = ANY($1) AND role = 'patient'
		ORDER BY user_id, team_id`
	return r.queryMembers(ctx, query, pq.Array(teamIDs))
}

func (r *PostgresMembersRepository) ListMembershipsOfUser(ctx context.Context, userID string) ([]domain.TeamMember, error) {
	query := `SELECT` + memberColumns + `
		FROM team_members
		WHERE user_id = $1
		ORDER BY team_id`
	return r.queryMembers(ctx, query, userID)
}

func (r *PostgresMembersRepository) UpsertMember(ctx context.Context, m *domain.TeamMember) error {
	profile, err := jsonParam(m.Profile)
	if err != nil {
		return err
	}
	alarms, err := jsonParam(m.Alarms)
	if err != nil {
		return err
	}
	monitoring, err := jsonParam(m.Monitoring)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO team_members (team_id, user_id, email, role, status, invitation_id, profile, alarms, monitoring, unread_messages, id_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (team_id, user_id)
		DO UPDATE SET email = EXCLUDED.email,
		              role = EXCLUDED.role,
		              status = EXCLUDED.status,
		              invitation_id = EXCLUDED.invitation_id,
		              profile = EXCLUDED.profile,
		              alarms = EXCLUDED.alarms,
		              monitoring = EXCLUDED.monitoring,
		              unread_messages = EXCLUDED.unread_messages,
		              id_verified = EXCLUDED.id_verified`
	_, err = r.db.ExecContext(ctx, query,
		m.TeamID, m.UserID, m.Email, string(m.Role), string(m.Status), m.InvitationID,
		profile, alarms, monitoring, m.UnreadMessages, m.IDVerified,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

func (r *PostgresMembersRepository) updateOne(ctx context.Context, query string, teamID, userID string, value any) error {
	res, err := r.db.ExecContext(ctx, query, teamID, userID, value)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s of team %s: %w", userID, teamID, domain.ErrNotTeamMember)
	}
	return nil
}

func (r *PostgresMembersRepository) UpdateMemberStatus(ctx context.Context, teamID, userID string, status domain.UserInvitationStatus) error {
	return r.updateOne(ctx, `UPDATE team_members SET status = $3 WHERE team_id = $1 AND user_id = $2`, teamID, userID, string(status))
}

func (r *PostgresMembersRepository) UpdateMemberRole(ctx context.Context, teamID, userID string, role domain.TeamMemberRole) error {
	return r.updateOne(ctx, `UPDATE team_members SET role = $3 WHERE team_id = $1 AND user_id = $2`, teamID, userID, string(role))
}

func (r *PostgresMembersRepository) UpdateMemberMonitoring(ctx context.Context, teamID, userID string, monitoring *domain.Monitoring) error {
	v, err := jsonParam(monitoring)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, `UPDATE team_members SET monitoring = $3 WHERE team_id = $1 AND user_id = $2`, teamID, userID, v)
}

func (r *PostgresMembersRepository) UpdateMemberAlarms(ctx context.Context, teamID, userID string, alarms domain.Alarm) error {
	v, err := jsonParam(alarms)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, `UPDATE team_members SET alarms = $3 WHERE team_id = $1 AND user_id = $2`, teamID, userID, v)
}

func (r *PostgresMembersRepository) ResetUnreadMessages(ctx context.Context, userID string, teamIDs []string) error {
	if len(teamIDs) == 0 {
		return nil
	}
	query := `UPDATE team_members SET unread_messages = 0 WHERE user_id = $1 AND team_id = ANY($2)`
	if _, err := r.db.ExecContext(ctx, query, userID, pq.Array(teamIDs)); err != nil {
		return fmt.Errorf("failed to reset unread messages: %w", err)
	}
	return nil
}

func (r *PostgresMembersRepository) DeleteMember(ctx context.Context, teamID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %s of team %s: %w", userID, teamID, domain.ErrNotTeamMember)
	}
	return nil
}
