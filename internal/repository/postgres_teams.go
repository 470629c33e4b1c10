package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"yourloops-dashboard/internal/domain"
)

type PostgresTeamsRepository struct {
	db      *sql.DB
	members *PostgresMembersRepository
}

func NewPostgresTeamsRepository(db *sql.DB) *PostgresTeamsRepository {
	return &PostgresTeamsRepository{db: db, members: NewPostgresMembersRepository(db)}
}

var _ TeamsRepository = (*PostgresTeamsRepository)(nil)

const teamColumns = `
	team_id,
	name,
	code,
	type,
	owner_id,
	phone,
	email,
	address,
	monitoring`

func scanTeam(row rowScanner) (*domain.Team, error) {
	var (
		t                   domain.Team
		teamType            string
		address, monitoring []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Code, &teamType, &t.OwnerID, &t.Phone, &t.Email, &address, &monitoring); err != nil {
		return nil, err
	}
	t.Type = domain.TeamType(teamType)
	if len(address) > 0 {
		t.Address = &domain.Address{}
		if err := scanJSON(address, t.Address); err != nil {
			return nil, err
		}
	}
	if len(monitoring) > 0 {
		t.Monitoring = &domain.Monitoring{}
		if err := scanJSON(monitoring, t.Monitoring); err != nil {
			return nil, err
		}
	}
	t.Members = []domain.TeamMember{}
	return &t, nil
}

func (r *PostgresTeamsRepository) getOne(ctx context.Context, where string, arg string) (*domain.Team, error) {
	query := `SELECT` + teamColumns + ` FROM teams WHERE ` + where
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("team %s: %w", arg, domain.ErrTeamNotFound)
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	members, err := r.members.ListMembers(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	team.Members = members
	return team, nil
}

func (r *PostgresTeamsRepository) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	return r.getOne(ctx, "team_id = $1", teamID)
}

func (r *PostgresTeamsRepository) GetTeamByCode(ctx context.Context, code string) (*domain.Team, error) {
	return r.getOne(ctx, "code = $1", code)
}

// ListTeamsForUser returns the teams userID belongs to, whatever the role or status.
func (r *PostgresTeamsRepository) ListTeamsForUser(ctx context.Context, userID string) ([]domain.Team, error) {
	query := `SELECT` + teamColumns + `
		FROM teams
		WHERE team_id IN (SELECT team_id FROM team_members WHERE user_id = $1)
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	teams := []domain.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	for i := range teams {
		members, err := r.members.ListMembers(ctx, teams[i].ID)
		if err != nil {
			return nil, err
		}
		teams[i].Members = members
	}
	return teams, nil
}

func (r *PostgresTeamsRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check team code: %w", err)
	}
	return exists, nil
}

// CreateTeam inserts the team and its initial members in one transaction.
func (r *PostgresTeamsRepository) CreateTeam(ctx context.Context, team *domain.Team) error {
	address, err := jsonParam(team.Address)
	if err != nil {
		return err
	}
	monitoring, err := jsonParam(team.Monitoring)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO teams (team_id, name, code, type, owner_id, phone, email, address, monitoring)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		team.ID, team.Name, team.Code, string(team.Type), team.OwnerID, team.Phone, team.Email, address, monitoring,
	)
	if err != nil {
		return fmt.Errorf("failed to insert team: %w", err)
	}
	for _, m := range team.Members {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO team_members (team_id, user_id, email, role, status, invitation_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			team.ID, m.UserID, m.Email, string(m.Role), string(m.Status), m.InvitationID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert team member: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit team: %w", err)
	}
	return nil
}

func (r *PostgresTeamsRepository) UpdateTeam(ctx context.Context, team *domain.Team) error {
	address, err := jsonParam(team.Address)
	if err != nil {
		return err
	}
	monitoring, err := jsonParam(team.Monitoring)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE teams
		SET name = $2, phone = $3, email = $4, address = $5, monitoring = $6, updated_at = now()
		WHERE team_id = $1`,
		team.ID, team.Name, team.Phone, team.Email, address, monitoring,
	)
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("team %s: %w", team.ID, domain.ErrTeamNotFound)
	}
	return nil
}

// DeleteTeam removes the team; memberships go with it (ON DELETE CASCADE).
func (r *PostgresTeamsRepository) DeleteTeam(ctx context.Context, teamID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE team_id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("team %s: %w", teamID, domain.ErrTeamNotFound)
	}
	return nil
}
