package repository

import (
	"context"
	"database/sql"
	"fmt"

	"yourloops-dashboard/internal/domain"
)

type PostgresDirectSharesRepository struct {
	db *sql.DB
}

func NewPostgresDirectSharesRepository(db *sql.DB) *PostgresDirectSharesRepository {
	return &PostgresDirectSharesRepository{db: db}
}

var _ DirectSharesRepository = (*PostgresDirectSharesRepository)(nil)

func (r *PostgresDirectSharesRepository) list(ctx context.Context, column, id string) ([]domain.DirectShare, error) {
	query := `
		SELECT patient_id, viewer_id, viewer_email, viewer_name, status, invitation_id
		FROM direct_shares
		WHERE ` + column + ` = $1
		ORDER BY patient_id, viewer_id`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct shares: %w", err)
	}
	defer rows.Close()

	shares := []domain.DirectShare{}
	for rows.Next() {
		var (
			s      domain.DirectShare
			status string
		)
		if err := rows.Scan(&s.PatientID, &s.ViewerID, &s.ViewerEmail, &s.ViewerName, &status, &s.InvitationID); err != nil {
			return nil, fmt.Errorf("failed to scan direct share: %w", err)
		}
		s.Status = domain.UserInvitationStatus(status)
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate direct shares: %w", err)
	}
	return shares, nil
}

func (r *PostgresDirectSharesRepository) ListSharesByViewer(ctx context.Context, viewerID string) ([]domain.DirectShare, error) {
	return r.list(ctx, "viewer_id", viewerID)
}

func (r *PostgresDirectSharesRepository) ListSharesByPatient(ctx context.Context, patientID string) ([]domain.DirectShare, error) {
	return r.list(ctx, "patient_id", patientID)
}

func (r *PostgresDirectSharesRepository) UpsertShare(ctx context.Context, s *domain.DirectShare) error {
	query := `
		INSERT INTO direct_shares (patient_id, viewer_id, viewer_email, viewer_name, status, invitation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_id, viewer_id)
		DO UPDATE SET viewer_email = EXCLUDED.viewer_email,
		              viewer_name = EXCLUDED.viewer_name,
		              status = EXCLUDED.status,
		              invitation_id = EXCLUDED.invitation_id`
	_, err := r.db.ExecContext(ctx, query, s.PatientID, s.ViewerID, s.ViewerEmail, s.ViewerName, string(s.Status), s.InvitationID)
	if err != nil {
		return fmt.Errorf("failed to upsert direct share: %w", err)
	}
	return nil
}

func (r *PostgresDirectSharesRepository) UpdateShareStatus(ctx context.Context, patientID, viewerID string, status domain.UserInvitationStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE direct_shares SET status = $3 WHERE patient_id = $1 AND viewer_id = $2`,
		patientID, viewerID, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update direct share: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("direct share %s/%s: %w", patientID, viewerID, domain.ErrShareNotFound)
	}
	return nil
}

func (r *PostgresDirectSharesRepository) DeleteShare(ctx context.Context, patientID, viewerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM direct_shares WHERE patient_id = $1 AND viewer_id = $2`, patientID, viewerID)
	if err != nil {
		return fmt.Errorf("failed to delete direct share: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("direct share %s/%s: %w", patientID, viewerID, domain.ErrShareNotFound)
	}
	return nil
}
