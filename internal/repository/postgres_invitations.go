package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"yourloops-dashboard/internal/domain"
)

type PostgresInvitationsRepository struct {
	db *sql.DB
}

func NewPostgresInvitationsRepository(db *sql.DB) *PostgresInvitationsRepository {
	return &PostgresInvitationsRepository{db: db}
}

var _ InvitationsRepository = (*PostgresInvitationsRepository)(nil)

const invitationColumns = `
	invitation_id,
	type,
	creator_id,
	creator_name,
	target_id,
	target_name,
	email,
	role,
	created_at`

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	var (
		inv       domain.Invitation
		typ, role string
	)
	if err := row.Scan(&inv.ID, &typ, &inv.CreatorID, &inv.CreatorName, &inv.TargetID, &inv.TargetName, &inv.Email, &role, &inv.Created); err != nil {
		return nil, err
	}
	inv.Type = domain.NotificationType(typ)
	inv.Role = domain.TeamMemberRole(role)
	return &inv, nil
}

func (r *PostgresInvitationsRepository) GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	query := `SELECT` + invitationColumns + ` FROM invitations WHERE invitation_id = $1`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, invitationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invitation %s: %w", invitationID, domain.ErrInvitationNotFound)
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

func (r *PostgresInvitationsRepository) ListInvitations(ctx context.Context, filter InvitationsFilter) ([]domain.Invitation, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filter.Email != "" {
		where = append(where, fmt.Sprintf("lower(email) = $%d", argN))
		args = append(args, strings.ToLower(filter.Email))
		argN++
	}
	if filter.CreatorID != "" {
		where = append(where, fmt.Sprintf("creator_id = $%d", argN))
		args = append(args, filter.CreatorID)
		argN++
	}
	if filter.TargetID != "" {
		where = append(where, fmt.Sprintf("target_id = $%d", argN))
		args = append(args, filter.TargetID)
		argN++
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("type = $%d", argN))
		args = append(args, string(filter.Type))
	}

	query := `SELECT` + invitationColumns + `
		FROM invitations
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	out := []domain.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return out, nil
}

func (r *PostgresInvitationsRepository) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (invitation_id, type, creator_id, creator_name, target_id, target_name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		inv.ID, string(inv.Type), inv.CreatorID, inv.CreatorName, inv.TargetID, inv.TargetName, inv.Email, string(inv.Role), inv.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *PostgresInvitationsRepository) DeleteInvitation(ctx context.Context, invitationID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE invitation_id = $1`, invitationID)
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invitation %s: %w", invitationID, domain.ErrInvitationNotFound)
	}
	return nil
}
